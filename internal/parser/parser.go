// Package parser reads cards written as "Q:" (term), "A:" (definition) and
// "T:" (comma-separated tags) blocks. A block runs until the next prefix;
// a new "Q:" or a "---" line starts the next card.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const (
	termPrefix       = "Q:"
	definitionPrefix = "A:"
	tagsPrefix       = "T:"
	separator        = "---"
)

type state int

const (
	seeking state = iota
	readingTerm
	readingDefinition
	readingTags
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.CardDraft, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// ParseDir walks root and parses every .md and .txt file in lexical order.
// Files that fail to parse are reported in the returned slice of errors and
// skipped; the final error is set only when the walk itself fails.
func ParseDir(root string) ([]domain.CardDraft, []error, error) {
	var cards []domain.CardDraft
	var parseErrors []error

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isCardFile(d.Name()) {
			return nil
		}
		fileCards, parseErr := ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		cards = append(cards, fileCards...)
		return nil
	})
	if err != nil {
		return nil, parseErrors, fmt.Errorf("walking %s: %w", root, err)
	}
	return cards, parseErrors, nil
}

func isCardFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".txt"
}

// Parse reads from an io.Reader and extracts all cards. Text before the
// first prefix is ignored.
func Parse(r io.Reader) ([]domain.CardDraft, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.CardDraft
	var current domain.CardDraft
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingTerm:
			current.Term = content
		case readingDefinition:
			current.Definition = content
		case readingTags:
			current.Tags = append(current.Tags, splitTags(content)...)
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Term != "" || current.Definition != "" {
			cards = append(cards, current)
		}
		current = domain.CardDraft{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishCard()
			continue
		}

		next, content, ok := prefixed(line)
		if !ok {
			if currentState != seeking {
				block = append(block, line)
			}
			continue
		}

		if next == readingTerm && currentState != seeking {
			finishCard()
		} else {
			flushBlock()
		}
		currentState = next
		block = append(block, content)
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

// prefixed reports which block line opens and the text after its prefix.
func prefixed(line string) (state, string, bool) {
	for _, p := range []struct {
		prefix string
		state  state
	}{
		{termPrefix, readingTerm},
		{definitionPrefix, readingDefinition},
		{tagsPrefix, readingTags},
	} {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.state, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
}
