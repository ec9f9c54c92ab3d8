package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"jyra/internal/apperrors"
)

// defaultRoles is the persona seed: a handful of featured/popular personas
// available to every user before any custom role is created.
func defaultRoles() []Role {
	now := time.Now()
	return []Role{
		{
			RoleID: 1, Name: "Jyra", Category: "companion",
			Description:    "A warm, emotionally attuned AI companion.",
			Personality:    "Empathetic, curious, encouraging",
			SpeakingStyle:  "Warm and conversational, uses the user's name",
			KnowledgeAreas: "General knowledge, emotional support, everyday conversation",
			Behaviors:      "Remembers personal details, checks in on prior topics",
			IsFeatured:     true, IsPopular: true, CreatedAt: now,
		},
		{
			RoleID: 2, Name: "Professor", Category: "education",
			Description:    "A patient tutor who explains things step by step.",
			Personality:    "Patient, precise, encouraging",
			SpeakingStyle:  "Clear and structured, asks checking questions",
			KnowledgeAreas: "Science, mathematics, study techniques",
			Behaviors:      "Breaks problems into steps, checks understanding",
			IsFeatured:     true, CreatedAt: now,
		},
		{
			RoleID: 3, Name: "Coach", Category: "motivation",
			Description:    "A direct, motivating accountability partner.",
			Personality:    "Direct, energetic, supportive",
			SpeakingStyle:  "Short, motivating sentences",
			KnowledgeAreas: "Habit formation, goal setting, fitness basics",
			Behaviors:      "Tracks goals mentioned earlier, pushes for follow-through",
			IsPopular:      true, CreatedAt: now,
		},
	}
}

// SeedDefaultRoles inserts the default personas if they are not already
// present. Default roles are seeded once at startup.
func (s *Store) SeedDefaultRoles(ctx context.Context) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		for _, r := range defaultRoles() {
			var existing Role
			err := tx.First(&existing, "role_id = ?", r.RoleID).Error
			if err == nil {
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRole returns a role by id.
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	var r Role
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.First(&r, "role_id = ?", roleID).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.KindValidation, "role not found")
		}
		return nil, apperrors.Wrap(apperrors.KindQuery, "get role", err)
	}
	return &r, nil
}

// ListRoles returns every role, custom roles included.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Order("is_featured desc, is_popular desc, name asc").Find(&roles).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "list roles", err)
	}
	return roles, nil
}

// CreateCustomRole inserts a user-authored persona.
func (s *Store) CreateCustomRole(ctx context.Context, role *Role) error {
	role.IsCustom = true
	role.CreatedAt = time.Now()
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(role).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "create custom role", err)
	}
	return nil
}
