// Package module manages learning modules: ordered lists of content items a learner completes one after the other.
package module

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/genzugar/backend/core"
)

type ContentType string

// Content types
const (
	ContentEbook ContentType = "ebook"
	ContentVideo ContentType = "video"
	ContentGame  ContentType = "game"
	ContentQuiz  ContentType = "quiz"
)

var ContentTypes = []ContentType{ContentEbook, ContentVideo, ContentGame, ContentQuiz}

func (ct ContentType) Valid() bool {
	for _, t := range ContentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

var (
	contentTypeTag  = "content_type"
	contentTypeText = "must be one of: ebook, video, game, quiz"
)

func init() {
	core.RegisterRule(contentTypeTag, func(fl validator.FieldLevel) bool {
		return ContentType(fl.Field().String()).Valid()
	}, contentTypeText)
}

type Module struct {
	ID                       string            `json:"id" db:"id"`
	Title                    string            `json:"title" db:"title"`
	Description              string            `json:"description" db:"description"`
	ModuleOrder              int               `json:"module_order" db:"module_order"`
	LearningObjectives       types.StringArray `json:"learning_objectives" db:"learning_objectives"`
	EstimatedDurationMinutes int               `json:"estimated_duration_minutes" db:"estimated_duration_minutes"`
	IsPublished              bool              `json:"is_published" db:"is_published"`
	CreatedAt                time.Time         `json:"created_at" db:"created_at"` // UTC
	UpdatedAt                time.Time         `json:"updated_at" db:"updated_at"` // UTC
}

type ContentItem struct {
	ID           string      `json:"id" db:"id"`
	ModuleID     string      `json:"module_id" db:"module_id"`
	Title        string      `json:"title" db:"title"`
	ContentType  ContentType `json:"content_type" db:"content_type"`
	ContentOrder int         `json:"content_order" db:"content_order"`
	ContentData  types.JSON  `json:"content_data" db:"content_data"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// Progress is the completion state of one content item for one user.
type Progress struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	ModuleID    string    `json:"module_id" db:"module_id"`
	ContentID   string    `json:"content_id" db:"content_id"`
	Completed   bool      `json:"completed" db:"completed"`
	Score       null.Int  `json:"score" db:"score"`
	CompletedAt null.Time `json:"completed_at" db:"completed_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`     // UTC
}

// NewModule is the payload of both create and update.
type NewModule struct {
	Title                    string   `json:"title" validate:"required,notblank,max=255"`
	Description              string   `json:"description"`
	ModuleOrder              int      `json:"module_order" validate:"gte=0"`
	LearningObjectives       []string `json:"learning_objectives" validate:"dive,notblank"`
	EstimatedDurationMinutes int      `json:"estimated_duration_minutes" validate:"gte=0"`
	IsPublished              bool     `json:"is_published"`
}

func (nm *NewModule) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	for i, obj := range nm.LearningObjectives {
		nm.LearningObjectives[i] = core.CleanString(obj)
	}
	return core.Validate.Struct(nm)
}

func (nm NewModule) apply(m *Module) {
	m.Title = nm.Title
	m.Description = nm.Description
	m.ModuleOrder = nm.ModuleOrder
	m.LearningObjectives = types.StringArray(nm.LearningObjectives)
	if m.LearningObjectives == nil {
		m.LearningObjectives = types.StringArray{}
	}
	m.EstimatedDurationMinutes = nm.EstimatedDurationMinutes
	m.IsPublished = nm.IsPublished
}

// NewContent is the payload of both create and update of a content item.
type NewContent struct {
	Title        string          `json:"title" validate:"required,notblank,max=255"`
	ContentType  ContentType     `json:"content_type" validate:"required,content_type"`
	ContentOrder int             `json:"content_order" validate:"gte=0"`
	ContentData  json.RawMessage `json:"content_data"`
}

// Validate checks the fields, then checks ContentData against the schema of ContentType.
func (nc *NewContent) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.ContentType = ContentType(core.CleanString(string(nc.ContentType), true /* lower */))
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	if len(nc.ContentData) == 0 || string(nc.ContentData) == "null" {
		nc.ContentData = json.RawMessage("{}")
	}
	return ValidateContentData(nc.ContentType, nc.ContentData)
}

func (nc NewContent) apply(c *ContentItem) {
	c.Title = nc.Title
	c.ContentType = nc.ContentType
	c.ContentOrder = nc.ContentOrder
	c.ContentData = types.JSON(nc.ContentData)
}

// CompleteContent is what a learner may send when completing a content item. Score is only meaningful for quizzes.
type CompleteContent struct {
	Score *int `json:"score" validate:"omitempty,gte=0,lte=100"`
}

func (cc CompleteContent) Validate() error { return core.Validate.Struct(cc) }

// Summary is a module as listed to a learner.
type Summary struct {
	Module
	ContentCount   int `json:"content_count"`
	CompletedCount int `json:"completed_count"`
}

// ContentView is a content item as shown to a learner.
type ContentView struct {
	ContentItem
	Completed  bool `json:"completed"`
	Accessible bool `json:"accessible"`
}

// Detail is a module with its content, annotated with the learner's progress.
type Detail struct {
	Module
	Contents       []ContentView `json:"contents"`
	CompletedCount int           `json:"completed_count"`
}
