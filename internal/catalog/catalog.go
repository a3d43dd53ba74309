// Package catalog loads the room and guest catalogue from YAML and writes it
// to the store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"hotelbooking/internal/models"

	"gopkg.in/yaml.v2"
)

type Catalog struct {
	Rooms  []models.Room  `yaml:"rooms"`
	Guests []models.Guest `yaml:"guests"`
}

type store interface {
	UpsertRoom(ctx context.Context, room *models.Room) error
	UpsertGuest(ctx context.Context, g *models.Guest) error
}

// Load reads and normalizes a catalogue file. Room type and status are
// matched case-insensitively; a missing status means Available.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Rooms) == 0 {
		return nil, errors.New("no rooms in catalog")
	}

	ids := make(map[string]bool, len(c.Rooms))
	numbers := make(map[string]bool, len(c.Rooms))
	for i := range c.Rooms {
		room := &c.Rooms[i]
		if room.ID == "" || room.Number == "" {
			return nil, fmt.Errorf("room #%d: id and number are required", i+1)
		}
		if ids[room.ID] || numbers[room.Number] {
			return nil, fmt.Errorf("room %s: duplicate id or number", room.Number)
		}
		ids[room.ID], numbers[room.Number] = true, true

		var err error
		if room.Type, err = models.ParseRoomType(string(room.Type)); err != nil {
			return nil, fmt.Errorf("room %s: %w", room.Number, err)
		}
		if room.Status == "" {
			room.Status = models.RoomAvailable
		}
		if room.Status, err = models.ParseRoomStatus(string(room.Status)); err != nil {
			return nil, fmt.Errorf("room %s: %w", room.Number, err)
		}
	}
	for i := range c.Guests {
		if c.Guests[i].ID == "" {
			return nil, fmt.Errorf("guest #%d: id is required", i+1)
		}
	}
	return &c, nil
}

// Apply upserts every room and guest. Live room status and version are
// preserved for rooms that already exist.
func (c *Catalog) Apply(ctx context.Context, s store) error {
	for i := range c.Rooms {
		if err := s.UpsertRoom(ctx, &c.Rooms[i]); err != nil {
			return fmt.Errorf("seed room %s: %w", c.Rooms[i].Number, err)
		}
	}
	for i := range c.Guests {
		if err := s.UpsertGuest(ctx, &c.Guests[i]); err != nil {
			return fmt.Errorf("seed guest %s: %w", c.Guests[i].ID, err)
		}
	}
	return nil
}
