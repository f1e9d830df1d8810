package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/adverthide/internal/model"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// binder returns a function that appends an argument and yields its placeholder.
func binder(d Dialect, args *[]any) func(v any) string {
	return func(v any) string {
		*args = append(*args, v)
		return d.bindvar(len(*args))
	}
}

// inList binds every id and returns the comma-separated placeholder list.
func inList(nextArg func(any) string, ids []int64) string {
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = nextArg(id)
	}
	return strings.Join(placeholders, ", ")
}

func queryLoadParams(ctx context.Context, db executor, sc schema, element, folder string) (*model.Params, error) {
	var args []any
	nextArg := binder(sc.dialect, &args)

	query := `SELECT params FROM ` + sc.extensions() +
		` WHERE type = ` + nextArg(model.ExtensionTypePlugin) +
		` AND element = ` + nextArg(element) +
		` AND folder = ` + nextArg(folder)

	var raw sql.NullString
	if err := db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return nil, err
	}

	values, err := model.DecodeParams([]byte(raw.String))
	if err != nil {
		return nil, err
	}
	return &model.Params{Element: element, Folder: folder, Values: values}, nil
}

func querySaveParams(ctx context.Context, db executor, sc schema, p *model.Params) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}

	var args []any
	nextArg := binder(sc.dialect, &args)

	query := `UPDATE ` + sc.extensions() +
		` SET params = ` + nextArg(string(data)) +
		` WHERE type = ` + nextArg(model.ExtensionTypePlugin) +
		` AND element = ` + nextArg(p.Element) +
		` AND folder = ` + nextArg(p.Folder)

	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func queryFieldID(ctx context.Context, db executor, sc schema, name string) (int64, error) {
	var args []any
	nextArg := binder(sc.dialect, &args)

	query := `SELECT id FROM ` + sc.fields() +
		` WHERE name = ` + nextArg(name) +
		` ORDER BY id LIMIT 1`

	var id int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func querySelectCandidates(ctx context.Context, db executor, sc schema, q model.CandidateQuery) ([]model.Candidate, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("select candidates: limit must be positive, got %d", q.Limit)
	}
	flag, _ := fieldValueText(model.Flag(true))
	hideBefore, ok := fieldValueText(model.Date(q.HideBefore))
	if !ok {
		return nil, fmt.Errorf("select candidates: hide-before time is required")
	}

	var args []any
	nextArg := binder(sc.dialect, &args)
	itemID := sc.dialect.idText("c.id")

	whereClauses := []string{
		"c.access = " + nextArg(q.PublicGroup),
		"c.state = " + nextArg(model.StatePublished),
		`EXISTS (SELECT 1 FROM ` + sc.fieldsValues() + ` f1` +
			` WHERE f1.item_id = ` + itemID +
			` AND f1.field_id = ` + nextArg(q.AdvertisingField) +
			` AND f1.value = ` + nextArg(flag) + `)`,
		`EXISTS (SELECT 1 FROM ` + sc.fieldsValues() + ` f2` +
			` WHERE f2.item_id = ` + itemID +
			` AND f2.field_id = ` + nextArg(q.HidingField) +
			` AND f2.value IS NOT NULL` +
			` AND f2.value <> ''` +
			` AND f2.value <> ` + nextArg(zeroDateText) +
			` AND f2.value <= ` + nextArg(hideBefore) + `)`,
	}

	if cats := model.NormalizeCategories(q.Categories); len(cats) > 0 {
		whereClauses = append(whereClauses, "c.catid IN ("+inList(nextArg, cats)+")")
	}

	query := `SELECT c.id, c.publish_up FROM ` + sc.content() + ` c` +
		` WHERE ` + strings.Join(whereClauses, " AND ") +
		` ORDER BY CASE WHEN ` + sc.dialect.noDate("c.publish_up") + ` THEN 1 ELSE 0 END, c.publish_up, c.id` +
		` LIMIT ` + nextArg(q.Limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

// queryUpdateAccess moves the rows of ids still at access from to access to
// and returns the ids it changed, in the order given. Without RETURNING the
// rows are locked first, so db must be a transaction for the result to be
// exact.
func queryUpdateAccess(ctx context.Context, db executor, sc schema, ids []int64, from, to int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	if !sc.dialect.returning {
		locked, err := queryLockAccess(ctx, db, sc, ids, from)
		if err != nil {
			return nil, err
		}
		if len(locked) == 0 {
			return nil, nil
		}
		ids = locked
	}

	var args []any
	nextArg := binder(sc.dialect, &args)

	query := `UPDATE ` + sc.content() +
		` SET access = ` + nextArg(to) +
		` WHERE access = ` + nextArg(from) +
		` AND id IN (` + inList(nextArg, ids) + `)`

	if !sc.dialect.returning {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n != int64(len(ids)) {
			return nil, fmt.Errorf("update access: %d of %d locked rows changed", n, len(ids))
		}
		return ids, nil
	}

	rows, err := db.QueryContext(ctx, query+` RETURNING id`, args...)
	if err != nil {
		return nil, err
	}
	changed, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return keepOrder(ids, changed), nil
}

// queryLockAccess returns the ids that are still at access from, locking
// their rows until the transaction ends.
func queryLockAccess(ctx context.Context, db executor, sc schema, ids []int64, from int64) ([]int64, error) {
	var args []any
	nextArg := binder(sc.dialect, &args)

	query := `SELECT id FROM ` + sc.content() +
		` WHERE access = ` + nextArg(from) +
		` AND id IN (` + inList(nextArg, ids) + `)` +
		` FOR UPDATE`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	locked, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return keepOrder(ids, locked), nil
}

// keepOrder returns the members of ids found in subset, in the order of ids.
func keepOrder(ids, subset []int64) []int64 {
	if len(subset) == 0 {
		return nil
	}
	in := make(map[int64]bool, len(subset))
	for _, id := range subset {
		in[id] = true
	}
	var out []int64
	for _, id := range ids {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func queryRestoreAccess(ctx context.Context, db executor, sc schema, q model.RestoreQuery) (int64, error) {
	flag, _ := fieldValueText(model.Flag(true))

	var args []any
	nextArg := binder(sc.dialect, &args)

	// Placeholders are bound in statement order: SET first, then WHERE.
	query := `UPDATE ` + sc.content() + ` c SET access = ` + nextArg(q.To) +
		` WHERE c.access = ` + nextArg(q.From) +
		` AND EXISTS (SELECT 1 FROM ` + sc.fieldsValues() + ` fv` +
		` WHERE fv.item_id = ` + sc.dialect.idText("c.id") +
		` AND fv.field_id = ` + nextArg(q.AdvertisingField) +
		` AND fv.value = ` + nextArg(flag) + `)`
	if cats := model.NormalizeCategories(q.Categories); len(cats) > 0 {
		query += ` AND c.catid IN (` + inList(nextArg, cats) + `)`
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
