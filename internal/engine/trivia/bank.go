package trivia

import (
	"bytes"
	_ "embed"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// GlobalModule draws from every pool in the bank
const GlobalModule = "global"

//go:embed questions.yaml
var defaultBank []byte

type bankFile struct {
	Modules map[string][]*entities.Question `yaml:"modules"`
}

// Bank holds trivia questions grouped by module
type Bank struct {
	modules map[string][]*entities.Question
	roller  dice.Roller
}

// DefaultBank returns the bank embedded in the binary
func DefaultBank(roller dice.Roller) (*Bank, error) {
	return LoadBank(bytes.NewReader(defaultBank), roller)
}

// LoadBankFile loads a bank from a YAML file on disk
func LoadBankFile(path string, roller dice.Roller) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeNotFound, "failed to open question bank").
			WithMeta("path", path)
	}
	defer f.Close()

	return LoadBank(f, roller)
}

// LoadBank parses a YAML bank. Questions missing a prompt or an answer are
// skipped with a warning so a bad entry never takes the whole pool down.
func LoadBank(r io.Reader, roller dice.Roller) (*Bank, error) {
	if roller == nil {
		roller = dice.DefaultRoller
	}

	var file bankFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse question bank")
	}

	b := &Bank{
		modules: make(map[string][]*entities.Question, len(file.Modules)),
		roller:  roller,
	}
	for module, questions := range file.Modules {
		for i, q := range questions {
			if q == nil {
				continue
			}
			if reason := invalidReason(q); reason != "" {
				slog.Warn("skipping invalid question",
					"module", module,
					"index", i,
					"question_id", q.ID,
					"reason", reason)
				continue
			}
			q.Module = module
			b.modules[module] = append(b.modules[module], q)
		}
	}

	return b, nil
}

func invalidReason(q *entities.Question) string {
	switch {
	case q.Prompt == "":
		return "missing prompt"
	case q.Correct != nil && (*q.Correct < 0 || *q.Correct >= len(q.Choices)):
		return "correct index out of range"
	case !q.MultipleChoice() && q.Answer == "":
		return "missing answer"
	}
	return ""
}

// Modules returns the names of the non-empty pools, sorted
func (b *Bank) Modules() []string {
	names := make([]string, 0, len(b.modules))
	for name, qs := range b.modules {
		if len(qs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of questions in a module
func (b *Bank) Len(module string) int {
	return len(b.pool(module))
}

// Pick draws a random question from a module. An empty or unknown pool is
// a NotFound error, never a panic.
func (b *Bank) Pick(module string) (*entities.Question, error) {
	pool := b.pool(module)
	if len(pool) == 0 {
		return nil, errors.NotFoundf("no questions in module %q", module)
	}

	roll, err := b.roller.Roll(len(pool))
	if err != nil {
		return nil, errors.Wrap(err, "failed to roll question")
	}
	if roll < 1 || roll > len(pool) {
		roll = 1
	}

	q := *pool[roll-1]
	return &q, nil
}

func (b *Bank) pool(module string) []*entities.Question {
	if module != GlobalModule {
		return b.modules[module]
	}

	var all []*entities.Question
	for _, name := range b.Modules() {
		all = append(all, b.modules[name]...)
	}
	return all
}
