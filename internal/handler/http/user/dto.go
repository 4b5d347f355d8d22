// Package user provides the authenticated user-profile and preferences
// handlers of the read API (spec.md §6: GET /api/users/profile, PUT
// /api/users/preferences).
package user

import "newsroom-core/internal/domain/entity"

// ProfileDTO is the JSON shape of GET /api/users/profile.
type ProfileDTO struct {
	ID           string   `json:"id"`
	Categories   []string `json:"categories"`
	DeviceTokens []string `json:"device_tokens"`
}

func toProfileDTO(p *entity.UserProfile) ProfileDTO {
	categories := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, string(c))
	}
	return ProfileDTO{
		ID:           p.ID,
		Categories:   categories,
		DeviceTokens: p.DeviceTokens,
	}
}
