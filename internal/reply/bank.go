package reply

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"InterviewGuru/internal/persona"
)

//go:embed questionbank.yaml
var defaultBank []byte

// DefaultRole is used for roles the bank has no questions for.
const DefaultRole = "Software Engineer"

const beginnerMaxStage = 3

// Tier holds the fallback questions of one role.
type Tier struct {
	Beginner     []string `yaml:"beginner"`
	Intermediate []string `yaml:"intermediate"`
}

// Bank is a static per-role set of fallback questions.
type Bank struct {
	roles map[string]Tier
	pick  func([]string) string
}

// LoadBank parses a YAML question bank. Every list must hold at least two
// questions so a pick can always avoid the previous one.
func LoadBank(data []byte) (*Bank, error) {
	var roles map[string]Tier
	if err := yaml.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if _, ok := roles[DefaultRole]; !ok {
		return nil, fmt.Errorf("question bank has no %q entry", DefaultRole)
	}
	for role, tier := range roles {
		if len(tier.Beginner) < 2 || len(tier.Intermediate) < 2 {
			return nil, fmt.Errorf("question bank role %q needs at least two questions per level", role)
		}
	}
	return &Bank{roles: roles, pick: lo.Sample[string]}, nil
}

// DefaultBank returns the embedded question bank.
func DefaultBank() *Bank {
	b, err := LoadBank(defaultBank)
	if err != nil {
		panic(err)
	}
	return b
}

// WithPicker returns a copy of the bank that chooses with pick instead of
// at random.
func (b *Bank) WithPicker(pick func([]string) string) *Bank {
	c := *b
	c.pick = pick
	return &c
}

// Roles lists the roles with dedicated questions.
func (b *Bank) Roles() []string {
	return lo.Keys(b.roles)
}

// IsBeginner reports whether fallback questions should come from the
// beginner list.
func IsBeginner(p persona.Signal, stage int) bool {
	return p == persona.NoExperience || stage <= beginnerMaxStage
}

// Pick returns a fallback question for role that differs from previous.
func (b *Bank) Pick(role string, beginner bool, previous string) string {
	tier := b.tier(role)
	list := tier.Intermediate
	if beginner {
		list = tier.Beginner
	}

	previous = strings.TrimSpace(previous)
	candidates := lo.Reject(list, func(q string, _ int) bool {
		return strings.EqualFold(q, previous)
	})
	return b.pick(candidates)
}

func (b *Bank) tier(role string) Tier {
	if t, ok := b.roles[role]; ok {
		return t
	}
	for name, t := range b.roles {
		if strings.EqualFold(name, strings.TrimSpace(role)) {
			return t
		}
	}
	return b.roles[DefaultRole]
}
