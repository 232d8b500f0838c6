// Package jobs provides the database job types: record writers driven by
// one mode-parameterized state machine, and the query/range readers.
package jobs

import (
	"github.com/roach88/dbfuel/internal/pipeline"
)

// Job type names.
const (
	InsertType       = "db_fuel/active_record/insert"
	FindOrInsertType = "db_fuel/active_record/find_or_insert"
	UpsertType       = "db_fuel/active_record/upsert"
	UpdateType       = "db_fuel/active_record/update"
	UpdateAllType    = "db_fuel/active_record/update_all"
	QueryType        = "db_fuel/dbee/query"
	RangeType        = "db_fuel/dbee/range"
)

var recordTypes = map[string]Mode{
	InsertType:       ModeInsert,
	FindOrInsertType: ModeFindOrInsert,
	UpsertType:       ModeUpsert,
	UpdateType:       ModeUpdate,
	UpdateAllType:    ModeUpdateAll,
}

// Register adds every job type of this package to reg.
func Register(reg *pipeline.Registry) {
	for jobType, mode := range recordTypes {
		reg.Register(jobType, recordFactory(mode))
	}
	reg.Register(QueryType, newQueryJob)
	reg.Register(RangeType, newRangeJob)
}

// NewRegistry returns a registry with the built-in and database job types.
func NewRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	Register(reg)
	return reg
}

func recordFactory(mode Mode) pipeline.Factory {
	return func(def pipeline.Definition, env pipeline.Env) (pipeline.Job, error) {
		var opts RecordOptions
		if err := def.Decode(&opts); err != nil {
			return nil, pipeline.WrapConfigError(def.Name(), "", err)
		}
		job, err := NewRecord(mode, opts, env)
		if err != nil {
			return nil, err
		}
		return job, nil
	}
}

func newQueryJob(def pipeline.Definition, env pipeline.Env) (pipeline.Job, error) {
	var opts QueryOptions
	if err := def.Decode(&opts); err != nil {
		return nil, pipeline.WrapConfigError(def.Name(), "", err)
	}
	job, err := NewQuery(opts, env)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func newRangeJob(def pipeline.Definition, env pipeline.Env) (pipeline.Job, error) {
	var opts RangeOptions
	if err := def.Decode(&opts); err != nil {
		return nil, pipeline.WrapConfigError(def.Name(), "", err)
	}
	job, err := NewRange(opts, env)
	if err != nil {
		return nil, err
	}
	return job, nil
}
