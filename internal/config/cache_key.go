package config

import (
	"fmt"
	"strconv"
)

type CacheKeyStruct struct {
	prefix string
}

func NewCacheKeyStruct(prefix string) *CacheKeyStruct {
	return &CacheKeyStruct{prefix: prefix}
}

// LiveEntryKey returns the hash holding the live-status facet of one
// (student, exam) session.
func (r *CacheKeyStruct) LiveEntryKey(studentID string, examID int64) string {
	return fmt.Sprintf("%s:live:%s:%d", r.prefix, studentID, examID)
}

// LiveEntriesIndex returns the set of every tracked "<studentID>:<examID>" member.
func (r *CacheKeyStruct) LiveEntriesIndex() string {
	return r.prefix + ":live:entries"
}

// StudentExamsKey returns the set of exam ids a student has live entries for.
func (r *CacheKeyStruct) StudentExamsKey(studentID string) string {
	return fmt.Sprintf("%s:live:student:%s", r.prefix, studentID)
}

// ProgressKey returns the hash holding the saved-progress facet.
func (r *CacheKeyStruct) ProgressKey(examID int64, studentID string) string {
	return fmt.Sprintf("%s:progress:%d:%s", r.prefix, examID, studentID)
}

// AdminOnlineKey returns the flag set while an administrator is monitoring.
func (r *CacheKeyStruct) AdminOnlineKey() string {
	return r.prefix + ":admin:online"
}

// AttendanceChannel returns the PubSub channel carrying attendance snapshots.
func (r *CacheKeyStruct) AttendanceChannel() string {
	return r.prefix + ":attendance:events"
}

// LiveEntryMember encodes a (student, exam) pair as an index member.
func (r *CacheKeyStruct) LiveEntryMember(studentID string, examID int64) string {
	return studentID + ":" + strconv.FormatInt(examID, 10)
}

var CacheKey = NewCacheKeyStruct("cbt")
