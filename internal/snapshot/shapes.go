package snapshot

import (
	"mcw-proxy/internal/store"
)

// Snapshot file names inside the snapshot directory.
const (
	UpdateFile      = "update.json"
	GameFile        = "game.json"
	MaintenanceFile = "maintenance.json"
)

// Update is the client update contract served by /mcw/api/update and
// /mcw/api/v2/update.
type Update struct {
	UpdateRequired bool     `json:"update_required"`
	LatestVersion  string   `json:"latest_version"`
	MinimumVersion string   `json:"minimum_version"`
	UpdateType     string   `json:"update_type"`
	UpdateMessage  string   `json:"update_message"`
	UpdateURL      string   `json:"update_url"`
	Changelog      []string `json:"changelog"`
}

// Game is one lobby category entry.
type Game struct {
	CategoryID   int64  `json:"category_id"`
	DisplayOrder int64  `json:"display_order"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
}

// Display holds the maintenance screen styling.
type Display struct {
	TextAlign       string `json:"text_align"`
	ThemeColor      string `json:"theme_color"`
	BackgroundColor string `json:"background_color"`
}

// Maintenance is the maintenance screen contract served by
// /mcw/api/maintenance and /mcw/api/v2/maintenance.
type Maintenance struct {
	MaintenanceMode bool    `json:"maintenance_mode"`
	Title           string  `json:"title"`
	Subtitle        string  `json:"subtitle"`
	Message         string  `json:"message"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Timezone        string  `json:"timezone"`
	Icon            string  `json:"icon"`
	Display         Display `json:"display"`
}

// FromUpdate builds the update contract from a stored row.
func FromUpdate(u store.AppUpdate) Update {
	return Update{
		UpdateRequired: u.UpdateRequired,
		LatestVersion:  u.LatestVersion,
		MinimumVersion: u.MinimumVersion,
		UpdateType:     u.UpdateType,
		UpdateMessage:  u.UpdateMessage,
		UpdateURL:      u.UpdateURL,
		Changelog:      u.ChangelogLines(),
	}
}

// FromGames builds the lobby list, keeping the input order.
func FromGames(games []store.Game) []Game {
	out := make([]Game, 0, len(games))
	for _, g := range games {
		out = append(out, Game{
			CategoryID:   g.CategoryID,
			DisplayOrder: g.DisplayOrder,
			Name:         g.Name,
			DisplayName:  g.DisplayName,
		})
	}
	return out
}

// FromMaintenance builds the maintenance contract from a stored row. Window
// times are rendered as RFC 3339 UTC.
func FromMaintenance(m store.Maintenance) Maintenance {
	return Maintenance{
		MaintenanceMode: m.MaintenanceMode,
		Title:           m.Title,
		Subtitle:        m.Subtitle,
		Message:         m.Message,
		StartTime:       store.UTCToRFC3339(m.StartTime),
		EndTime:         store.UTCToRFC3339(m.EndTime),
		Timezone:        m.Timezone,
		Icon:            m.Icon,
		Display: Display{
			TextAlign:       m.TextAlign,
			ThemeColor:      m.ThemeColor,
			BackgroundColor: m.BackgroundColor,
		},
	}
}

// DisabledMaintenance is written when no window is active and no snapshot
// exists yet.
func DisabledMaintenance() Maintenance {
	return Maintenance{
		Display: Display{
			TextAlign:       store.DefaultTextAlign,
			ThemeColor:      store.DefaultThemeColor,
			BackgroundColor: store.DefaultBackgroundColor,
		},
	}
}
