package service

import (
	"errors"

	"github.com/peterskelv123-tech/backend-offline/internal/repository"
)

// Domain errors.
var (
	ErrExamNotFound          = errors.New("exam not found")
	ErrClassNotFound         = errors.New("class not found")
	ErrResultNotFound        = errors.New("result not found")
	ErrNoResults             = errors.New("result not yet available")
	ErrNoSubjects            = errors.New("no subjects registered")
	ErrNoClasses             = errors.New("no classes registered")
	ErrDuplicateResult       = errors.New("result already exists for this exam and student")
	ErrSubjectExists         = errors.New("subject already exists")
	ErrClassExists           = errors.New("class already exists")
	ErrNoQuestions           = errors.New("no questions found for this exam")
	ErrInsufficientRemaining = errors.New("not enough questions left to complete this question set")
	ErrExamActive            = errors.New("can't delete an ongoing exam")
	ErrRepeatedAnswer        = errors.New("submission answers the same question more than once")

	ErrInvalidSearchField = repository.ErrInvalidSearchField
)
