package model

import "sort"

// Project groups the tasks of a board.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectMap is the project mapping of a store indexed by project ID.
type ProjectMap map[string]Project

// Clone returns a copy of the mapping.
func (m ProjectMap) Clone() ProjectMap {
	c := make(ProjectMap, len(m))
	for id, p := range m {
		c[id] = p
	}
	return c
}

// Sorted returns the projects sorted by name.
func (m ProjectMap) Sorted() []Project {
	ps := make([]Project, 0, len(m))
	for _, p := range m {
		ps = append(ps, p)
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Name == ps[j].Name {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].Name < ps[j].Name
	})
	return ps
}

// Board is a project with its tasks, used to seed stores.
type Board struct {
	Project Project
	Tasks   []Task
}
