package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/dbfuel/internal/canonical"
	"github.com/roach88/dbfuel/internal/dbprovider"
	"github.com/roach88/dbfuel/internal/modeling"
	"github.com/roach88/dbfuel/internal/objectpath"
	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/store"
)

// Mode selects which transitions of the record state machine are enabled.
type Mode int

const (
	// ModeInsert always inserts; there is no find step.
	ModeInsert Mode = iota

	// ModeFindOrInsert inserts rows with no match and leaves matches alone.
	ModeFindOrInsert

	// ModeUpsert inserts rows with no match and updates matches by primary key.
	ModeUpsert

	// ModeUpdate updates matches by primary key and skips rows with no match.
	ModeUpdate

	// ModeUpdateAll updates every record matching the unique attributes.
	ModeUpdateAll
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "insert"
	case ModeFindOrInsert:
		return "find_or_insert"
	case ModeUpsert:
		return "upsert"
	case ModeUpdate:
		return "update"
	case ModeUpdateAll:
		return "update_all"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// finds reports whether rows are looked up before writing.
func (m Mode) finds() bool {
	return m == ModeFindOrInsert || m == ModeUpsert || m == ModeUpdate
}

// inserts reports whether unmatched rows are inserted.
func (m Mode) inserts() bool {
	return m == ModeInsert || m == ModeFindOrInsert || m == ModeUpsert
}

// requiresPrimaryKey reports whether primary_keyed_column must be set.
func (m Mode) requiresPrimaryKey() bool {
	return m.finds()
}

// requiresUniqueAttributes reports whether unique_attributes must be set.
func (m Mode) requiresUniqueAttributes() bool {
	return m != ModeInsert
}

// RecordOptions configure a record job.
type RecordOptions struct {
	pipeline.JobOptions `yaml:",inline"`

	TableName          string                `yaml:"table_name"`
	Attributes         []modeling.Attribute  `yaml:"attributes,omitempty"`
	UniqueAttributes   []modeling.Attribute  `yaml:"unique_attributes,omitempty"`
	PrimaryKeyedColumn *modeling.KeyedColumn `yaml:"primary_keyed_column,omitempty"`
	Timestamps         *bool                 `yaml:"timestamps,omitempty"`
	Separator          string                `yaml:"separator,omitempty"`
	Debug              bool                  `yaml:"debug,omitempty"`
	KeysRegister       string                `yaml:"keys_register,omitempty"`
}

// Totals are the aggregate counters of one Sync.
type Totals struct {
	Inserted     int
	Updated      int
	Existed      int
	RowsAffected int64
}

// Record writes the rows of a register into a table.
//
// A Record is read-only after construction and may be performed repeatedly.
type Record struct {
	name         string
	mode         Mode
	register     string
	keysRegister string
	debug        bool
	timestamps   bool

	resolver   objectpath.Resolver
	renderers  *modeling.RendererSet
	unique     []modeling.Renderer
	primaryKey *modeling.KeyedColumn

	db       store.ExecQuerier
	provider *dbprovider.Provider
}

// NewRecord validates opts for mode. Every problem is a *pipeline.ConfigError
// raised before any row is touched.
func NewRecord(mode Mode, opts RecordOptions, env pipeline.Env) (*Record, error) {
	name := opts.Name

	provider, err := dbprovider.New(opts.TableName, env.Dialect, env.DB)
	if err != nil {
		return nil, pipeline.NewConfigError(name, "table_name", "is required")
	}

	var primaryKey *modeling.KeyedColumn
	switch {
	case opts.PrimaryKeyedColumn == nil && mode.requiresPrimaryKey():
		return nil, pipeline.NewConfigError(name, "primary_keyed_column", "is required for %s", mode)
	case opts.PrimaryKeyedColumn != nil && mode == ModeUpdateAll:
		return nil, pipeline.NewConfigError(name, "primary_keyed_column", "is not supported for %s", mode)
	case opts.PrimaryKeyedColumn != nil:
		kc, err := modeling.NewKeyedColumn(opts.PrimaryKeyedColumn.Key, opts.PrimaryKeyedColumn.Column)
		if err != nil {
			return nil, pipeline.WrapConfigError(name, "primary_keyed_column", err)
		}
		primaryKey = &kc
	}

	if mode.requiresUniqueAttributes() && len(opts.UniqueAttributes) == 0 {
		return nil, pipeline.NewConfigError(name, "unique_attributes", "at least one is required for %s", mode)
	}

	resolver := objectpath.NewResolver(opts.Separator)
	renderers, err := modeling.NewRendererSet(resolver, opts.Attributes)
	if err != nil {
		return nil, pipeline.WrapConfigError(name, "attributes", err)
	}

	unique, err := renderers.MakeRenderers(opts.UniqueAttributes)
	if err != nil {
		return nil, pipeline.WrapConfigError(name, "unique_attributes", err)
	}

	timestamps := true
	if opts.Timestamps != nil {
		timestamps = *opts.Timestamps
	}

	return &Record{
		name:         name,
		mode:         mode,
		register:     opts.RegisterOrDefault(),
		keysRegister: opts.KeysRegister,
		debug:        opts.Debug,
		timestamps:   timestamps,
		resolver:     resolver,
		renderers:    renderers,
		unique:       unique,
		primaryKey:   primaryKey,
		db:           env.DB,
		provider:     provider,
	}, nil
}

// Name implements pipeline.Job.
func (r *Record) Name() string {
	return r.name
}

// Mode returns the state machine variant of the job.
func (r *Record) Mode() Mode {
	return r.mode
}

// Perform implements pipeline.Job.
func (r *Record) Perform(ctx context.Context, out pipeline.Output, payload *pipeline.Payload) error {
	_, err := r.Sync(ctx, out, payload)
	return err
}

// Sync processes every row of the register in order and reports the totals.
//
// Generated or matched primary keys are written back into the rows. The
// first database error aborts the batch and is returned with the row index.
func (r *Record) Sync(ctx context.Context, out pipeline.Output, payload *pipeline.Payload) (Totals, error) {
	var totals Totals

	if r.db == nil {
		return totals, fmt.Errorf("no database configured")
	}

	rows, err := payload.Rows(r.register)
	if err != nil {
		return totals, err
	}

	keys := r.resolveKeySet(out, payload)

	for i, row := range rows {
		if err := r.syncRow(ctx, out, row, payload.Time, keys, &totals); err != nil {
			return totals, fmt.Errorf("row %d: %w", i, err)
		}
	}

	r.summarize(out, totals)
	return totals, nil
}

func (r *Record) syncRow(
	ctx context.Context,
	out pipeline.Output,
	row map[string]any,
	now time.Time,
	keys modeling.KeySet,
	totals *Totals,
) error {
	switch r.mode {
	case ModeInsert:
		if err := r.insert(ctx, out, row, now, keys); err != nil {
			return err
		}
		totals.Inserted++
		return nil

	case ModeUpdateAll:
		where := r.renderers.Render(r.unique, row, now, modeling.KeySet{})
		affected, err := r.update(ctx, out, row, now, keys, where)
		if err != nil {
			return err
		}
		r.debugDetail(out, "Individual Rows Affected: %d", affected)
		totals.RowsAffected += affected
		return nil
	}

	existing, found, err := r.find(ctx, out, row, now)
	if err != nil {
		return err
	}

	if !found {
		if !r.mode.inserts() {
			return nil
		}
		if err := r.insert(ctx, out, row, now, keys); err != nil {
			return err
		}
		totals.Inserted++
		return nil
	}

	id := r.resolver.Get(existing, r.primaryKey.Column)
	r.resolver.Set(row, r.primaryKey.Key, id)

	if r.mode == ModeFindOrInsert {
		totals.Existed++
		return nil
	}

	affected, err := r.update(ctx, out, row, now, keys, map[string]any{r.primaryKey.Column: id})
	if err != nil {
		return err
	}
	if r.mode == ModeUpdate {
		r.debugDetail(out, "Individual Rows Affected: %d", affected)
	}
	totals.Updated++
	totals.RowsAffected += affected
	return nil
}

// find looks up the first record matching the rendered unique attributes.
func (r *Record) find(ctx context.Context, out pipeline.Output, row map[string]any, now time.Time) (map[string]any, bool, error) {
	where := r.renderers.Render(r.unique, row, now, modeling.KeySet{})
	r.debugDetail(out, "Find Statement: %s", r.provider.FirstSQL(where))

	existing, found, err := r.provider.First(ctx, where)
	if err != nil {
		return nil, false, err
	}
	if found {
		r.debugDetail(out, "Record Exists: %s", canonical.String(existing))
	}
	return existing, found, nil
}

func (r *Record) insert(ctx context.Context, out pipeline.Output, row map[string]any, now time.Time, keys modeling.KeySet) error {
	renderers := r.renderers.Renderers()
	if r.timestamps {
		renderers = r.renderers.WithCreatedAndUpdated(renderers)
	}
	values := r.renderers.Render(renderers, row, now, keys)

	pkColumn := ""
	if r.primaryKey != nil {
		pkColumn = r.primaryKey.Column
	}

	r.debugDetail(out, "Insert Statement: %s", r.provider.InsertSQL(values, pkColumn))

	id, err := r.provider.Insert(ctx, values, pkColumn)
	if err != nil {
		return err
	}
	if r.primaryKey != nil {
		r.resolver.Set(row, r.primaryKey.Key, id)
	}

	r.debugDetail(out, "Insert Return: %s", canonical.String(row))
	return nil
}

func (r *Record) update(
	ctx context.Context,
	out pipeline.Output,
	row map[string]any,
	now time.Time,
	keys modeling.KeySet,
	where map[string]any,
) (int64, error) {
	renderers := r.renderers.Renderers()
	if r.timestamps {
		renderers = r.renderers.WithUpdated(renderers)
	}
	set := r.renderers.Render(renderers, row, now, keys)

	r.debugDetail(out, "Update Statement: %s", r.provider.UpdateSQL(set, where))

	affected, err := r.provider.Update(ctx, set, where)
	if err != nil {
		return 0, err
	}

	r.debugDetail(out, "Update Return: %s", canonical.String(row))
	return affected, nil
}

// resolveKeySet reads the permitted attribute keys from the keys register.
// An unset or empty register places no restriction.
func (r *Record) resolveKeySet(out pipeline.Output, payload *pipeline.Payload) modeling.KeySet {
	if r.keysRegister == "" {
		return modeling.KeySet{}
	}

	var keys []string
	for _, v := range payload.Values(r.keysRegister) {
		if v == nil {
			continue
		}
		keys = append(keys, fmt.Sprint(v))
	}

	set := modeling.NewKeySet(keys...)
	if set.Len() > 0 {
		out.Detail("Limiting to only keys: %s", strings.Join(set.Keys(), ", "))
	}
	return set
}

func (r *Record) summarize(out pipeline.Output, t Totals) {
	switch r.mode {
	case ModeInsert:
		out.Detail("Total Inserted: %d", t.Inserted)
	case ModeFindOrInsert:
		out.Detail("Total Existed: %d", t.Existed)
		out.Detail("Total Inserted: %d", t.Inserted)
	case ModeUpsert:
		out.Detail("Total Updated: %d", t.Updated)
		out.Detail("Total Inserted: %d", t.Inserted)
	case ModeUpdate:
		out.Detail("Total Updated: %d", t.Updated)
		out.Detail("Total Rows Affected: %d", t.RowsAffected)
	case ModeUpdateAll:
		out.Detail("Total Rows Affected: %d", t.RowsAffected)
	}
}

// debugDetail writes a trace line only when debug is enabled. Trace lines
// carry SQL text and row contents.
func (r *Record) debugDetail(out pipeline.Output, format string, args ...any) {
	if !r.debug {
		return
	}
	out.Detail(format, args...)
}
