package rankings

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/internal/models"
)

// ParseQueueCSV reads an uploaded rankings sheet into an ordered player id
// list. Rows are preference order, top first. The sheet either carries a
// player_id column, or name/team columns that are resolved against the
// room's pool. Unknown players are rejected with their row number.
func ParseQueueCSV(r io.Reader, pool []models.Player) ([]uuid.UUID, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	if cols.id < 0 && cols.name < 0 {
		return nil, fmt.Errorf("rankings sheet needs a player_id or name column")
	}

	index := newPlayerIndex(pool)

	var queue []uuid.UUID
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		row++

		id, err := resolveRow(record, cols, index)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		queue = append(queue, id)
	}
	return queue, nil
}

type columnIndex struct {
	id   int
	name int
	team int
}

func indexColumns(header []string) columnIndex {
	cols := columnIndex{id: -1, name: -1, team: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "player_id", "id":
			cols.id = i
		case "name", "player", "player_name", "full_name":
			cols.name = i
		case "team", "team_code":
			cols.team = i
		}
	}
	return cols
}

type playerIndex struct {
	byID       map[uuid.UUID]models.Player
	byNameTeam map[string]uuid.UUID
	byName     map[string][]uuid.UUID
}

func newPlayerIndex(pool []models.Player) *playerIndex {
	idx := &playerIndex{
		byID:       make(map[uuid.UUID]models.Player, len(pool)),
		byNameTeam: make(map[string]uuid.UUID, len(pool)),
		byName:     make(map[string][]uuid.UUID),
	}
	for _, p := range pool {
		idx.byID[p.ID] = p
		name := normalize(p.FullName)
		idx.byNameTeam[name+"|"+normalize(p.TeamCode)] = p.ID
		idx.byName[name] = append(idx.byName[name], p.ID)
	}
	return idx
}

func resolveRow(record []string, cols columnIndex, index *playerIndex) (uuid.UUID, error) {
	if cols.id >= 0 && cols.id < len(record) && strings.TrimSpace(record[cols.id]) != "" {
		id, err := uuid.Parse(strings.TrimSpace(record[cols.id]))
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid player_id %q", record[cols.id])
		}
		if _, ok := index.byID[id]; !ok {
			return uuid.Nil, fmt.Errorf("player %s not in room pool", id)
		}
		return id, nil
	}

	if cols.name < 0 || cols.name >= len(record) {
		return uuid.Nil, fmt.Errorf("missing player name")
	}
	name := normalize(record[cols.name])
	if name == "" {
		return uuid.Nil, fmt.Errorf("missing player name")
	}

	if cols.team >= 0 && cols.team < len(record) && strings.TrimSpace(record[cols.team]) != "" {
		if id, ok := index.byNameTeam[name+"|"+normalize(record[cols.team])]; ok {
			return id, nil
		}
		return uuid.Nil, fmt.Errorf("player %q (%s) not in room pool", record[cols.name], record[cols.team])
	}

	matches := index.byName[name]
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return uuid.Nil, fmt.Errorf("player %q not in room pool", record[cols.name])
	default:
		return uuid.Nil, fmt.Errorf("player %q is ambiguous; add a team column", record[cols.name])
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
