package tabsync

import (
	"github.com/slok/taskflow/internal/model"
)

// MergeTasks merges a task mapping written by another tab into the local one.
//
//   - Tasks only present locally are kept.
//   - Tasks only present in the incoming mapping are adopted as they are.
//   - Tasks present in both take every incoming field, except comments and
//     dependencies that keep the local list when the incoming one is empty.
//     A local tombstone is kept when the incoming task has no deletion mark.
func MergeTasks(local, incoming model.TaskMap) model.TaskMap {
	merged := local.Clone()

	for id, in := range incoming {
		l, ok := merged[id]
		if !ok {
			merged[id] = in.Clone()
			continue
		}

		t := in.Clone()
		if len(in.Comments) == 0 {
			t.Comments = l.Comments
		}
		if len(in.Dependencies) == 0 {
			t.Dependencies = l.Dependencies
		}
		if in.DeletedAt == nil {
			t.DeletedAt = l.DeletedAt
		}
		merged[id] = t
	}

	return merged
}

// ParseBlob returns the task mapping of a persisted store blob.
func ParseBlob(data []byte) (model.TaskMap, error) {
	return model.DecodeStoreBlob(data)
}
