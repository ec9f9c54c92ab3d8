// Package store is the single owner of row lifetimes for every entity the
// core persists: users, roles, conversations, memories, tags,
// relationships, consolidations, summaries, and embeddings. It wraps
// gorm.io/gorm over a github.com/glebarez/sqlite (cgo-free) connection.
package store

import "time"

// ResponseLength and Formality are the user_preferences enumerations.
type ResponseLength string

const (
	ResponseShort  ResponseLength = "short"
	ResponseMedium ResponseLength = "medium"
	ResponseLong   ResponseLength = "long"
)

type Formality string

const (
	FormalityCasual  Formality = "casual"
	FormalityNeutral Formality = "neutral"
	FormalityFormal  Formality = "formal"
)

// MemorySource enumerates how a Memory came to exist.
type MemorySource string

const (
	SourceExplicit     MemorySource = "explicit"
	SourceExtracted    MemorySource = "extracted"
	SourceInferred     MemorySource = "inferred"
	SourceConsolidated MemorySource = "consolidated"
)

// RelationshipType enumerates MemoryRelationship.type values.
type RelationshipType string

const (
	RelationPartOf     RelationshipType = "part_of"
	RelationSupports    RelationshipType = "supports"
	RelationContradicts RelationshipType = "contradicts"
	RelationRelatesTo   RelationshipType = "relates_to"
)

// User is the external-assigned-ID identity; never deleted by the core.
type User struct {
	UserID          int64 `gorm:"primaryKey;autoIncrement:false"`
	Username        string
	FirstName       string
	LastName        string
	LanguageCode    string
	CurrentRoleID   *int64
	IsAdmin         bool
	CreatedAt       time.Time
	LastInteraction time.Time
}

// UserPreferences is a 1:1 keyed-by-user record.
type UserPreferences struct {
	UserID               int64 `gorm:"primaryKey;autoIncrement:false"`
	Language             string
	ResponseLength       ResponseLength `gorm:"default:medium"`
	FormalityLevel       Formality      `gorm:"default:neutral"`
	MemoryEnabled        bool           `gorm:"default:true"`
	VoiceResponsesEnabled bool
	Theme                string
}

// Role is a persona definition; default roles are seeded once at startup.
type Role struct {
	RoleID          int64 `gorm:"primaryKey"`
	Name            string
	Description     string
	Personality     string
	SpeakingStyle   string
	KnowledgeAreas  string
	Behaviors       string
	IsCustom        bool
	CreatedBy       *int64
	CreatedAt       time.Time
	IsFeatured      bool
	IsPopular       bool
	Category        string
}

// Conversation is an append-only message log, pruned by maintenance beyond
// an age threshold.
type Conversation struct {
	MessageID   int64 `gorm:"primaryKey"`
	UserID      int64 `gorm:"index"`
	RoleID      int64 `gorm:"index"`
	UserMessage string
	BotResponse string
	Timestamp   time.Time `gorm:"index"`
}

// Memory is the core textual fact record the rest of the module operates on.
type Memory struct {
	MemoryID       int64 `gorm:"primaryKey"`
	UserID         int64 `gorm:"index"`
	Content        string
	Category       string `gorm:"default:general;index"`
	Importance     int    `gorm:"index"`
	Source         MemorySource
	Context        string
	Confidence     float64 `gorm:"index"`
	ExpiresAt      *time.Time `gorm:"index"`
	RecallCount    int        `gorm:"index"`
	CreatedAt      time.Time  `gorm:"index"`
	LastAccessed   time.Time
	LastReinforced time.Time
	IsConsolidated bool `gorm:"index"`

	Tags []Tag `gorm:"many2many:memory_tag_associations;"`
}

// Tag is unique per (user_id, name).
type Tag struct {
	TagID  int64  `gorm:"primaryKey"`
	UserID int64  `gorm:"uniqueIndex:idx_user_tag"`
	Name   string `gorm:"uniqueIndex:idx_user_tag"`
}

// MemoryRelationship is a directed, typed edge between two memories.
type MemoryRelationship struct {
	RelationshipID   int64 `gorm:"primaryKey"`
	SourceMemoryID   int64 `gorm:"index"`
	TargetMemoryID   int64 `gorm:"index"`
	RelationshipType RelationshipType
	Strength         float64
	CreatedAt        time.Time
}

// MemoryConsolidation records that originalMemoryID was folded into
// consolidatedMemoryID.
type MemoryConsolidation struct {
	OriginalMemoryID     int64 `gorm:"primaryKey"`
	ConsolidatedMemoryID int64 `gorm:"primaryKey;index"`
	CreatedAt            time.Time
}

// MemoryConsolidationLog is the append-only audit trail of each
// consolidation run, keyed separately from MemoryConsolidation so the edges
// table stays a pure graph and the log can record run-level metadata.
type MemoryConsolidationLog struct {
	LogID                int64 `gorm:"primaryKey"`
	UserID               int64 `gorm:"index"`
	SourceMemories        string // JSON array of source memory IDs
	ConsolidatedMemoryID int64
	ConsolidationType    string
	CreatedAt            time.Time
}

// MemorySummary: at most one row per (user, category).
type MemorySummary struct {
	SummaryID   int64 `gorm:"primaryKey"`
	UserID      int64 `gorm:"uniqueIndex:idx_user_category"`
	Category    string `gorm:"uniqueIndex:idx_user_category"`
	Summary     string
	LastUpdated time.Time
}

// MemoryEmbedding persists one memory's vector as a little-endian float32
// blob; memory_id is both primary key and the cascade anchor (a Memory
// "owns" its Embedding row).
type MemoryEmbedding struct {
	MemoryID  int64 `gorm:"primaryKey;autoIncrement:false"`
	Embedding []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string                    { return "users" }
func (UserPreferences) TableName() string          { return "user_preferences" }
func (Role) TableName() string                     { return "roles" }
func (Conversation) TableName() string             { return "conversations" }
func (Memory) TableName() string                   { return "memories" }
func (Tag) TableName() string                      { return "memory_tags" }
func (MemoryRelationship) TableName() string       { return "memory_relationships" }
func (MemoryConsolidation) TableName() string      { return "memory_consolidations" }
func (MemoryConsolidationLog) TableName() string   { return "memory_consolidation_log" }
func (MemorySummary) TableName() string            { return "memory_summaries" }
func (MemoryEmbedding) TableName() string          { return "memory_embeddings" }

// AllModels lists every model AutoMigrate must create, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &UserPreferences{}, &Role{}, &Conversation{},
		&Memory{}, &Tag{}, &MemoryRelationship{}, &MemoryConsolidation{},
		&MemoryConsolidationLog{}, &MemorySummary{}, &MemoryEmbedding{},
	}
}
