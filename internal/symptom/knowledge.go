package symptom

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed conditions.yaml
var defaultConditions []byte

// Condition is a predefined diagnosis that can be served without calling an
// external model.
type Condition struct {
	ID        string   `yaml:"id" json:"id"`
	Symptoms  []string `yaml:"symptoms" json:"symptoms"`
	Condition string   `yaml:"condition" json:"condition"`
	Advice    string   `yaml:"advice" json:"advice"`
	Urgency   string   `yaml:"urgency" json:"urgency"`
}

// KnowledgeBase is an immutable, ordered table of conditions. The order in
// which conditions were declared is the order Match walks them in.
type KnowledgeBase struct {
	conditions []Condition
	sets       []Set
	byID       map[string]int
	catalog    []string
}

type knowledgeFile struct {
	Conditions []Condition `yaml:"conditions"`
	Catalog    []string    `yaml:"catalog"`
}

var (
	defaultOnce sync.Once
	defaultKB   *KnowledgeBase
)

// Default returns the built-in knowledge base. It panics if the embedded
// table is invalid, which can only happen at build time.
func Default() *KnowledgeBase {
	defaultOnce.Do(func() {
		kb, err := Load(bytes.NewReader(defaultConditions))
		if err != nil {
			panic(fmt.Sprintf("symptom: embedded knowledge base: %v", err))
		}
		defaultKB = kb
	})
	return defaultKB
}

// LoadFile reads a knowledge base from a YAML file on disk.
func LoadFile(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML knowledge base. Conditions keep their file order.
func Load(r io.Reader) (*KnowledgeBase, error) {
	var file knowledgeFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	return New(file.Conditions, file.Catalog)
}

// New builds a knowledge base from conditions in the given order. Ids must
// be unique and every condition needs at least one symptom, none repeated.
func New(conditions []Condition, catalog []string) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		conditions: make([]Condition, 0, len(conditions)),
		sets:       make([]Set, 0, len(conditions)),
		byID:       make(map[string]int, len(conditions)),
		catalog:    append([]string(nil), catalog...),
	}
	for _, c := range conditions {
		if c.ID == "" {
			return nil, fmt.Errorf("condition %q has no id", c.Condition)
		}
		if _, dup := kb.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate condition id %q", c.ID)
		}
		if len(c.Symptoms) == 0 {
			return nil, fmt.Errorf("condition %q has no symptoms", c.ID)
		}
		set := NewSet(c.Symptoms...)
		if len(set) != len(c.Symptoms) {
			return nil, fmt.Errorf("condition %q lists a symptom more than once", c.ID)
		}
		c.Symptoms = append([]string(nil), c.Symptoms...)
		kb.byID[c.ID] = len(kb.conditions)
		kb.conditions = append(kb.conditions, c)
		kb.sets = append(kb.sets, set)
	}
	return kb, nil
}

// Conditions returns a copy of the table in declaration order.
func (kb *KnowledgeBase) Conditions() []Condition {
	out := make([]Condition, len(kb.conditions))
	for i, c := range kb.conditions {
		c.Symptoms = append([]string(nil), c.Symptoms...)
		out[i] = c
	}
	return out
}

// Lookup finds a condition by id.
func (kb *KnowledgeBase) Lookup(id string) (Condition, bool) {
	i, ok := kb.byID[id]
	if !ok {
		return Condition{}, false
	}
	c := kb.conditions[i]
	c.Symptoms = append([]string(nil), c.Symptoms...)
	return c, true
}

// Catalog lists the selectable symptom labels, decoration included.
func (kb *KnowledgeBase) Catalog() []string {
	return append([]string(nil), kb.catalog...)
}

func (kb *KnowledgeBase) Len() int { return len(kb.conditions) }
