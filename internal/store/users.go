package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"jyra/internal/apperrors"
)

// GetOrCreateUser returns the user with id, creating it (with default
// preferences) on first contact. Users are created on first contact and
// never deleted by the core.
func (s *Store) GetOrCreateUser(ctx context.Context, userID int64, username, firstName, lastName, languageCode string) (*User, error) {
	var out User
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		var u User
		err := tx.First(&u, "user_id = ?", userID).Error
		if err == nil {
			u.LastInteraction = time.Now()
			if saveErr := tx.Save(&u).Error; saveErr != nil {
				return saveErr
			}
			out = u
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		u = User{
			UserID:          userID,
			Username:        username,
			FirstName:       firstName,
			LastName:        lastName,
			LanguageCode:    languageCode,
			CreatedAt:       time.Now(),
			LastInteraction: time.Now(),
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		prefs := UserPreferences{
			UserID:         userID,
			Language:       languageCode,
			ResponseLength: ResponseMedium,
			FormalityLevel: FormalityNeutral,
			MemoryEnabled:  true,
		}
		if err := tx.Create(&prefs).Error; err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "get or create user", err)
	}
	return &out, nil
}

// GetPreferences returns a user's preferences row.
func (s *Store) GetPreferences(ctx context.Context, userID int64) (*UserPreferences, error) {
	var prefs UserPreferences
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.First(&prefs, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "get preferences", err)
	}
	return &prefs, nil
}

// UpdatePreferences persists the given preferences snapshot.
func (s *Store) UpdatePreferences(ctx context.Context, prefs *UserPreferences) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Save(prefs).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "update preferences", err)
	}
	return nil
}

// SetCurrentRole updates a user's active persona.
func (s *Store) SetCurrentRole(ctx context.Context, userID, roleID int64) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("user_id = ?", userID).Update("current_role_id", roleID).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "set current role", err)
	}
	return nil
}

// AllUserIDs returns every distinct user_id that has at least one memory,
// used by Scheduler and DecayEngine.ApplyAll to iterate users.
func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Memory{}).Distinct("user_id").Pluck("user_id", &ids).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "list user ids", err)
	}
	return ids, nil
}
