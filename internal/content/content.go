// Package content holds the static lessons, flashcard sets and quizzes
// shipped with the binary.
package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/frenchbreeze/breeze/internal/profile"
)

// ErrNotFound is returned by lookups for unknown ids or topics.
var ErrNotFound = errors.New("content not found")

//go:embed data.json
var embeddedData []byte

// Vocabulary is one word taught by a lesson.
type Vocabulary struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

// Lesson is a vocabulary lesson on one topic.
type Lesson struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Topic      string        `json:"topic"`
	Level      profile.Level `json:"level"`
	Vocabulary []Vocabulary  `json:"vocabulary"`
	GrammarTip string        `json:"grammarTip"`
}

// Card is a flashcard.
type Card struct {
	Front             string `json:"front"`
	Back              string `json:"back"`
	PronunciationHint string `json:"pronunciationHint,omitempty"`
}

// FlashcardSet groups the cards of a topic.
type FlashcardSet struct {
	Topic string        `json:"topic"`
	Level profile.Level `json:"level"`
	Cards []Card        `json:"cards"`
}

// Catalog is an indexed, read-only view of the content tables.
type Catalog struct {
	topics     []string
	lessons    []Lesson
	flashcards []FlashcardSet
	quizzes    []Quiz

	lessonByID map[string]int
	quizByID   map[string]int
	setByTopic map[string]int
}

type document struct {
	Topics     []string       `json:"topics"`
	Lessons    []Lesson       `json:"lessons"`
	Flashcards []FlashcardSet `json:"flashcards"`
	Quizzes    []Quiz         `json:"quizzes"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(embeddedData)
})

// Default returns the catalog built from the embedded tables.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded content is invalid: %v", err))
	}
	return c
}

// Parse validates raw against the content schema and indexes it.
func Parse(raw []byte) (*Catalog, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}

	c := &Catalog{
		topics:     doc.Topics,
		lessons:    doc.Lessons,
		flashcards: doc.Flashcards,
		quizzes:    doc.Quizzes,
		lessonByID: make(map[string]int, len(doc.Lessons)),
		quizByID:   make(map[string]int, len(doc.Quizzes)),
		setByTopic: make(map[string]int, len(doc.Flashcards)),
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

// index builds lookups and checks the cross-references a schema cannot express.
func (c *Catalog) index() error {
	known := func(topic string) bool { return slices.Contains(c.topics, topic) }

	for i, l := range c.lessons {
		if _, dup := c.lessonByID[l.ID]; dup {
			return fmt.Errorf("duplicate lesson id %q", l.ID)
		}
		if err := profile.ValidateLessonID(l.ID); err != nil {
			return fmt.Errorf("lesson %q: %w", l.ID, err)
		}
		if !known(l.Topic) {
			return fmt.Errorf("lesson %q: unknown topic %q", l.ID, l.Topic)
		}
		c.lessonByID[l.ID] = i
	}
	for i, s := range c.flashcards {
		if _, dup := c.setByTopic[s.Topic]; dup {
			return fmt.Errorf("duplicate flashcard set for topic %q", s.Topic)
		}
		if !known(s.Topic) {
			return fmt.Errorf("flashcards: unknown topic %q", s.Topic)
		}
		c.setByTopic[s.Topic] = i
	}
	for i, q := range c.quizzes {
		if _, dup := c.quizByID[q.ID]; dup {
			return fmt.Errorf("duplicate quiz id %q", q.ID)
		}
		if !known(q.Topic) {
			return fmt.Errorf("quiz %q: unknown topic %q", q.ID, q.Topic)
		}
		for n, qq := range q.Questions {
			if qq.Type == MultipleChoice && !slices.Contains(qq.Options, qq.CorrectAnswer) {
				return fmt.Errorf("quiz %q question %d: answer %q is not an option", q.ID, n+1, qq.CorrectAnswer)
			}
		}
		c.quizByID[q.ID] = i
	}
	return nil
}

// Topics returns the lesson topics in display order.
func (c *Catalog) Topics() []string {
	return slices.Clone(c.topics)
}

// Lessons returns every lesson.
func (c *Catalog) Lessons() []Lesson {
	return slices.Clone(c.lessons)
}

// LessonIDs returns the ids of every known lesson.
func (c *Catalog) LessonIDs() []string {
	ids := make([]string, len(c.lessons))
	for i, l := range c.lessons {
		ids[i] = l.ID
	}
	return ids
}

// Lesson looks up a lesson by id.
func (c *Catalog) Lesson(id string) (Lesson, error) {
	i, ok := c.lessonByID[id]
	if !ok {
		return Lesson{}, fmt.Errorf("lesson %q: %w", id, ErrNotFound)
	}
	return c.lessons[i], nil
}

// LessonsByTopic returns the lessons of topic, possibly none.
func (c *Catalog) LessonsByTopic(topic string) []Lesson {
	var out []Lesson
	for _, l := range c.lessons {
		if l.Topic == topic {
			out = append(out, l)
		}
	}
	return out
}

// LessonsByLevel returns the lessons at level. LevelUnset matches all.
func (c *Catalog) LessonsByLevel(level profile.Level) []Lesson {
	if level == profile.LevelUnset {
		return c.Lessons()
	}
	var out []Lesson
	for _, l := range c.lessons {
		if l.Level == level {
			out = append(out, l)
		}
	}
	return out
}

// FlashcardSets returns every flashcard set.
func (c *Catalog) FlashcardSets() []FlashcardSet {
	return slices.Clone(c.flashcards)
}

// Flashcards returns the set for topic.
func (c *Catalog) Flashcards(topic string) (FlashcardSet, error) {
	i, ok := c.setByTopic[topic]
	if !ok {
		return FlashcardSet{}, fmt.Errorf("flashcards for %q: %w", topic, ErrNotFound)
	}
	return c.flashcards[i], nil
}

// Quizzes returns every quiz.
func (c *Catalog) Quizzes() []Quiz {
	return slices.Clone(c.quizzes)
}

// Quiz looks up a quiz by id.
func (c *Catalog) Quiz(id string) (Quiz, error) {
	i, ok := c.quizByID[id]
	if !ok {
		return Quiz{}, fmt.Errorf("quiz %q: %w", id, ErrNotFound)
	}
	return c.quizzes[i], nil
}
