package tabsync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/tabsync"
)

func ptrInt64(i int64) *int64 { return &i }

func TestMergeTasks(t *testing.T) {
	c1 := model.Comment{ID: "c1", TaskID: "t1", Content: "local"}
	c2 := model.Comment{ID: "c2", TaskID: "t1", Content: "one"}
	c3 := model.Comment{ID: "c3", TaskID: "t1", Content: "two"}

	tests := map[string]struct {
		local    model.TaskMap
		incoming model.TaskMap
		exp      model.TaskMap
	}{
		"New incoming tasks should be adopted as they are.": {
			local: model.TaskMap{},
			incoming: model.TaskMap{
				"t2": {ID: "t2", Title: "New", Status: model.TaskStatusTodo},
			},
			exp: model.TaskMap{
				"t2": {ID: "t2", Title: "New", Status: model.TaskStatusTodo},
			},
		},

		"Local only tasks should be kept.": {
			local: model.TaskMap{
				"t1": {ID: "t1", Title: "Local"},
			},
			incoming: model.TaskMap{
				"t2": {ID: "t2", Title: "Remote"},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Title: "Local"},
				"t2": {ID: "t2", Title: "Remote"},
			},
		},

		"Incoming fields should win on shared tasks.": {
			local: model.TaskMap{
				"t1": {ID: "t1", Title: "Old", Status: model.TaskStatusTodo, AssignedTo: []string{"alice"}},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", Title: "New", Status: model.TaskStatusDone, AssignedTo: []string{"bob"}},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Title: "New", Status: model.TaskStatusDone, AssignedTo: []string{"bob"}},
			},
		},

		"Incoming non empty comments should replace the local ones.": {
			local: model.TaskMap{
				"t1": {ID: "t1", Comments: []model.Comment{c1}},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", Comments: []model.Comment{c2, c3}},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Comments: []model.Comment{c2, c3}},
			},
		},

		"Incoming empty comments should keep the local ones.": {
			local: model.TaskMap{
				"t1": {ID: "t1", Comments: []model.Comment{c1}},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", Title: "Renamed", Comments: []model.Comment{}},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Title: "Renamed", Comments: []model.Comment{c1}},
			},
		},

		"Incoming empty dependencies should keep the local ones.": {
			local: model.TaskMap{
				"t1": {ID: "t1", Dependencies: []string{"t0"}},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", Dependencies: nil},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Dependencies: []string{"t0"}},
			},
		},

		"Incoming non empty dependencies should replace the local ones.": {
			local: model.TaskMap{
				"t1": {ID: "t1", Dependencies: []string{"t0"}},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", Dependencies: []string{"t5", "t6"}},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Dependencies: []string{"t5", "t6"}},
			},
		},

		"Local tombstones should be kept when incoming has no deletion mark.": {
			local: model.TaskMap{
				"t1": {ID: "t1", DeletedAt: ptrInt64(10)},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", Title: "Renamed"},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", Title: "Renamed", DeletedAt: ptrInt64(10)},
			},
		},

		"Incoming tombstones should win.": {
			local: model.TaskMap{
				"t1": {ID: "t1"},
			},
			incoming: model.TaskMap{
				"t1": {ID: "t1", DeletedAt: ptrInt64(20)},
			},
			exp: model.TaskMap{
				"t1": {ID: "t1", DeletedAt: ptrInt64(20)},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got := tabsync.MergeTasks(test.local, test.incoming)
			assert.Equal(test.exp, got)
		})
	}
}

func TestMergeTasksDoesNotMutateInputs(t *testing.T) {
	local := model.TaskMap{"t1": {ID: "t1", Title: "Old", Dependencies: []string{"t0"}}}
	incoming := model.TaskMap{"t1": {ID: "t1", Title: "New"}, "t2": {ID: "t2"}}

	got := tabsync.MergeTasks(local, incoming)
	got["t1"].Dependencies[0] = "changed"

	assert.Equal(t, model.TaskMap{"t1": {ID: "t1", Title: "Old", Dependencies: []string{"t0"}}}, local)
	assert.Len(t, incoming, 2)
}
