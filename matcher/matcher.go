package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/go-ns/log"
)

// ErrDuplicateControlPoint is returned when two control points share an id
var ErrDuplicateControlPoint = errors.New("Bad request - duplicate control point id")

// Result holds the outcome of matching control points to geographic points
type Result struct {
	Matched                  []models.MatchedPair `json:"matched"`
	UnmatchedControlPointIDs []string             `json:"unmatched_control_point_ids"`
	Messages                 []*models.Message    `json:"messages"`
}

// Match pairs each control point with the geographic point sharing its id. Matching is exact and case
// sensitive, and the order of controlPoints is preserved. A control point with an empty id is reported
// as unmatched under the placeholder "#<index>".
func Match(controlPoints []models.ControlPoint, geoPoints []models.GeoPoint) (*Result, error) {

	if dup := firstDuplicate(controlPoints); len(dup) > 0 {
		log.Debug("duplicate control point", log.Data{"id": dup})
		return nil, fmt.Errorf("%w: %q", ErrDuplicateControlPoint, dup)
	}

	index := make(map[string]models.GeoPoint, len(geoPoints))
	for _, g := range geoPoints {
		if len(g.ID) == 0 {
			continue
		}
		if _, exists := index[g.ID]; !exists {
			index[g.ID] = g
		}
	}

	result := &Result{Matched: []models.MatchedPair{}, UnmatchedControlPointIDs: []string{}}
	for i, cp := range controlPoints {
		if len(cp.ID) == 0 {
			result.UnmatchedControlPointIDs = append(result.UnmatchedControlPointIDs, placeholder(i))
			continue
		}
		g, found := index[cp.ID]
		if !found {
			result.UnmatchedControlPointIDs = append(result.UnmatchedControlPointIDs, cp.ID)
			continue
		}
		result.Matched = append(result.Matched, models.MatchedPair{ID: cp.ID, ControlPoint: cp, GeoPoint: g})
	}

	if len(result.UnmatchedControlPointIDs) > 0 {
		result.Messages = append(result.Messages, &models.Message{Level: models.LevelWarn, Text: fmt.Sprintf("IDs of %d control points could not be found in the geographic points. Control point IDs: [%v]", len(result.UnmatchedControlPointIDs), strings.Join(result.UnmatchedControlPointIDs, ", "))})
	}
	result.Messages = append(result.Messages, &models.Message{Level: models.LevelInfo, Text: fmt.Sprintf("Successfully matched %d of %d control points", len(result.Matched), len(controlPoints))})

	return result, nil
}

// placeholder labels a control point that has no id by its position in the input
func placeholder(i int) string {
	return fmt.Sprintf("#%d", i)
}

// firstDuplicate returns the first non-empty id that appears more than once, or "" if ids are unique
func firstDuplicate(controlPoints []models.ControlPoint) string {
	seen := make(map[string]bool, len(controlPoints))
	for _, cp := range controlPoints {
		if len(cp.ID) == 0 {
			continue
		}
		if seen[cp.ID] {
			return cp.ID
		}
		seen[cp.ID] = true
	}
	return ""
}
