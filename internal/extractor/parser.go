package extractor

import (
	"regexp"
	"strings"
)

// Question is one multiple-choice item parsed from document text.
// CorrectAnswer is empty when the block had no usable answer letter.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// ParseResult is the outcome of Parse together with the counts needed to
// detect a block/answer desync.
type ParseResult struct {
	Questions     []Question
	Blocks        int
	AnswerLetters int
	Dropped       int
}

// Mismatch reports whether answer letters could not be aligned one-to-one
// with question blocks.
func (r ParseResult) Mismatch() bool {
	return r.Blocks != r.AnswerLetters
}

var (
	blankLineRun  = regexp.MustCompile(`\n+`)
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]{2,}`)
	optionMarker  = regexp.MustCompile(`([A-E])\)`)
	answerWord    = regexp.MustCompile(`(?i)Answer\s*:?\s*([A-Za-z])`)
	answerToken   = regexp.MustCompile(`(?i)Answer:\s*([A-Za-z])`)
	questionStem  = regexp.MustCompile(`(?s)^(.*?)\s*[A-E]\)`)
	optionLine    = regexp.MustCompile(`[A-E]\)\s*([^\n]+)`)
	itemNumber    = regexp.MustCompile(`^\d+\.\s*`)

	// docx paragraphs frequently run numbered items together.
	docxItemNumber = regexp.MustCompile(`(\d+)\.`)
	docxBanner     = regexp.MustCompile(`(?im)^.*Progressive\s*Test.*$`)
)

// Normalize applies the whitespace and marker rewriting every document goes
// through before it is split into blocks.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = blankLineRun.ReplaceAllString(text, "\n")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = optionMarker.ReplaceAllString(text, "\n$1)")
	text = answerWord.ReplaceAllString(text, "\nAnswer: $1")
	return strings.TrimSpace(text)
}

// PrepareDocx performs the extra line splitting applied to text read from
// .docx files, and drops banner lines repeated on every page.
func PrepareDocx(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = blankLineRun.ReplaceAllString(text, "\n")
	text = docxItemNumber.ReplaceAllString(text, "\n$1.")
	text = optionMarker.ReplaceAllString(text, "\n$1)")
	text = answerWord.ReplaceAllString(text, "\nAnswer: $1")
	text = docxBanner.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Parse splits text into question blocks terminated by "Answer: <letter>"
// markers and pairs the i-th block with the i-th answer letter.
func Parse(text string) ParseResult {
	normalized := Normalize(text)

	var blocks []string
	for _, b := range answerToken.Split(normalized, -1) {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, b)
		}
	}

	matches := answerToken.FindAllStringSubmatch(normalized, -1)
	letters := make([]byte, 0, len(matches))
	for _, m := range matches {
		letters = append(letters, strings.ToUpper(m[1])[0])
	}

	res := ParseResult{
		Blocks:        len(blocks),
		AnswerLetters: len(letters),
	}

	for i, block := range blocks {
		q := parseBlock(block)
		if i < len(letters) {
			q.CorrectAnswer = resolveAnswer(letters[i], q.Options)
		}
		if q.Text == "" || len(q.Options) == 0 {
			res.Dropped++
			continue
		}
		res.Questions = append(res.Questions, q)
	}

	return res
}

func parseBlock(block string) Question {
	var stem string
	if m := questionStem.FindStringSubmatch(block); m != nil {
		stem = strings.TrimSpace(strings.ReplaceAll(m[1], "\n", " "))
	} else {
		stem = strings.TrimSpace(block)
	}
	stem = itemNumber.ReplaceAllString(stem, "")

	var options []string
	for _, m := range optionLine.FindAllStringSubmatch(block, -1) {
		options = append(options, strings.TrimSpace(m[1]))
	}

	return Question{Text: stem, Options: options}
}

// resolveAnswer maps A..E to an index into options; out of range yields "".
func resolveAnswer(letter byte, options []string) string {
	idx := int(letter) - 'A'
	if idx < 0 || idx >= len(options) {
		return ""
	}
	return options[idx]
}
