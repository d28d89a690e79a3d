package xdt

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"xdt-go/internal/model"
)

const (
	maxRelationType  = 120
	maxRelationValue = 255
)

// CreateRelation links a report to an external reference such as a
// requirement or ticket. Both parts are trimmed and must be non-empty.
func (s *Service) CreateRelation(ctx context.Context, reportID int64, relType, value string) (*model.Relation, error) {
	const op = "create relation"

	relType, err := cleanRelationField(op, "type", relType, maxRelationType)
	if err != nil {
		return nil, err
	}
	value, err = cleanRelationField(op, "value", value, maxRelationValue)
	if err != nil {
		return nil, err
	}

	rel := &model.Relation{ReportID: reportID, Type: relType, Value: value, CreatedAt: s.clock.Now()}
	err = s.store.Transact(ctx, func(q Queries) error {
		r, err := q.FindReportByID(ctx, reportID)
		if err != nil {
			return fmt.Errorf("finding report: %w", err)
		}
		if r == nil {
			return notFound(op, "report %d does not exist", reportID)
		}
		return q.InsertRelation(ctx, rel)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("relation created", "id", rel.ID, "report", reportID, "type", rel.Type, "value", rel.Value)
	return rel, nil
}

// ListRelations returns the relations of a report, newest first.
func (s *Service) ListRelations(ctx context.Context, reportID int64) ([]*model.Relation, error) {
	const op = "list relations"
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	relations, err := s.store.ListRelationsForReport(ctx, reportID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return relations, nil
}

// UpdateRelation replaces the non-empty parts of a relation. At least one
// of relType and value must be given.
func (s *Service) UpdateRelation(ctx context.Context, id int64, relType, value string) (*model.Relation, error) {
	const op = "update relation"

	relType, value = strings.TrimSpace(relType), strings.TrimSpace(value)
	if relType == "" && value == "" {
		return nil, invalidInput(op, "nothing to update")
	}

	var rel *model.Relation
	err := s.store.Transact(ctx, func(q Queries) error {
		var err error
		rel, err = q.FindRelationByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding relation: %w", err)
		}
		if rel == nil {
			return notFound(op, "relation %d does not exist", id)
		}
		if relType != "" {
			if rel.Type, err = cleanRelationField(op, "type", relType, maxRelationType); err != nil {
				return err
			}
		}
		if value != "" {
			if rel.Value, err = cleanRelationField(op, "value", value, maxRelationValue); err != nil {
				return err
			}
		}
		return q.UpdateRelation(ctx, rel)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("relation updated", "id", id)
	return rel, nil
}

// DeleteRelation removes a relation.
func (s *Service) DeleteRelation(ctx context.Context, id int64) error {
	const op = "delete relation"

	err := s.store.Transact(ctx, func(q Queries) error {
		rel, err := q.FindRelationByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding relation: %w", err)
		}
		if rel == nil {
			return notFound(op, "relation %d does not exist", id)
		}
		return q.DeleteRelation(ctx, id)
	})
	if err != nil {
		return s.fail(op, err)
	}

	s.logger.Info("relation deleted", "id", id)
	return nil
}

func cleanRelationField(op, field, v string, limit int) (string, error) {
	v = norm.NFC.String(strings.TrimSpace(v))
	if v == "" {
		return "", invalidInput(op, "relation %s must not be empty", field)
	}
	if utf8.RuneCountInString(v) > limit {
		return "", invalidInput(op, "relation %s longer than %d characters", field, limit)
	}
	return v, nil
}
