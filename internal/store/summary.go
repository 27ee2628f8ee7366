package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"

	"github.com/erazemk/assettrack/internal/model"
)

// GetSummary aggregates active assets and repair tickets.
func GetSummary(ctx context.Context, db *sql.DB) (*model.Summary, error) {
	s := &model.Summary{
		TotalValue: decimal.Zero,
		RepairsByStage: map[model.Stage]int{
			model.StageReported:   0,
			model.StageDispatched: 0,
			model.StageReturned:   0,
			model.StageResolved:   0,
		},
	}

	rows, err := query(ctx, db, selectFrom("assets").
		Select("price", "quantity").
		Where(goqu.C("is_active").IsTrue()))
	if err != nil {
		return nil, fmt.Errorf("summing asset value: %w", err)
	}
	for rows.Next() {
		var price decimal.Decimal
		var quantity int64
		if err := rows.Scan(&price, &quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning asset value: %w", err)
		}
		s.TotalAssets++
		s.TotalValue = s.TotalValue.Add(price.Mul(decimal.NewFromInt(quantity)))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.ByStatus, err = countAssetsBy(ctx, db, "status_id", "statuses"); err != nil {
		return nil, err
	}
	if s.ByDepartment, err = countAssetsBy(ctx, db, "current_department_id", "departments"); err != nil {
		return nil, err
	}

	stages, err := query(ctx, db, selectFrom("repair_tickets").
		Select("stage", goqu.COUNT(goqu.Star())).
		GroupBy("stage"))
	if err != nil {
		return nil, fmt.Errorf("counting repair stages: %w", err)
	}
	defer stages.Close()
	for stages.Next() {
		var stage model.Stage
		var n int
		if err := stages.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("scanning repair stage: %w", err)
		}
		s.RepairsByStage[stage] = n
	}
	return s, stages.Err()
}

func countAssetsBy(ctx context.Context, db *sql.DB, column, catalog string) ([]model.GroupCount, error) {
	ref := goqu.I("a." + column)
	rows, err := query(ctx, db, selectFrom(goqu.T("assets").As("a")).
		LeftJoin(goqu.T(catalog).As("c"), goqu.On(goqu.I("c.id").Eq(ref))).
		Select(ref, goqu.I("c.name"), goqu.COUNT(goqu.Star()).As("n")).
		Where(goqu.I("a.is_active").IsTrue()).
		GroupBy(ref, goqu.I("c.name")).
		Order(goqu.I("n").Desc(), ref.Asc()))
	if err != nil {
		return nil, fmt.Errorf("counting assets by %s: %w", column, err)
	}
	defer rows.Close()

	counts := []model.GroupCount{}
	for rows.Next() {
		var (
			gc   model.GroupCount
			id   sql.NullInt64
			name sql.NullString
		)
		if err := rows.Scan(&id, &name, &gc.Count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		gc.ID = nullableID(id)
		gc.Name = nullableName(name)
		counts = append(counts, gc)
	}
	return counts, rows.Err()
}
