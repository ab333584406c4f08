package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/uatkit/uat/internal/types"
)

// GetSignoffData gathers the cycle, its tests, the stories those tests
// belong to and any logged defects
func (s *SQLiteStorage) GetSignoffData(ctx context.Context, cycleID string) (*types.SignoffData, error) {
	cycle, err := s.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.ProgramName == "" {
		cycle.ProgramName = cycle.ProgramPrefix
	}

	tests, err := s.queryTests(ctx, `
		WHERE uat_cycle_id = ?
		ORDER BY COALESCE(story_id, ''), test_id`, cycleID)
	if err != nil {
		return nil, err
	}

	data := &types.SignoffData{Cycle: cycle, Tests: tests}

	seen := make(map[string]bool)
	var storyIDs []interface{}
	for _, t := range tests {
		if t.StoryID != "" && !seen[t.StoryID] {
			seen[t.StoryID] = true
			storyIDs = append(storyIDs, t.StoryID)
		}
		if t.DefectID != "" {
			data.Defects = append(data.Defects, &types.Defect{
				DefectID:    t.DefectID,
				TestID:      t.TestID,
				Description: t.DefectDescription,
				DevStatus:   t.DevStatus,
				DevNotes:    t.DevNotes,
			})
		}
	}

	if len(storyIDs) == 0 {
		return data, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(storyIDs)), ",")
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT story_id, title, COALESCE(user_story, ''), COALESCE(acceptance_criteria, ''),
		       COALESCE(priority, ''), COALESCE(status, '')
		FROM user_stories
		WHERE story_id IN (%s)
		ORDER BY story_id
	`, placeholders), storyIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st types.Story
		if err := rows.Scan(&st.StoryID, &st.Title, &st.UserStory, &st.AcceptanceCriteria,
			&st.Priority, &st.Status); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		data.Stories = append(data.Stories, &st)
	}
	return data, rows.Err()
}
