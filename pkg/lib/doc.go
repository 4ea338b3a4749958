// Package lib provides a Go SDK to manage taskflow boards programmatically.
//
// The SDK works on the same local database as the taskflow CLI, the changes
// made through it are seen by the open tabs of the machine. When a relay server
// is configured the changes are also published to the remote clients viewing
// the project.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	task, err := client.AddTask(ctx, "demo", lib.AddTaskOpts{Title: "Write docs"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.MoveTask(ctx, "demo", task.ID, lib.TaskStatusInProgress)
//	client.AddComment(ctx, "demo", task.ID, "On it")
//
//	board, _ := client.Board(ctx, "demo")
//	for _, t := range board.Tasks {
//	    fmt.Println(t.Status, t.Title)
//	}
//
// # Suggestions
//
// The initial status of a task can be suggested from its title. Rules based on
// the title keywords are used unless [Config].LLMEndpoint points to an Ollama
// compatible server, in that case the rules are only used when the model fails:
//
//	sug, _ := client.Suggest(ctx, "Fix crash on login")
//	fmt.Println(sug.Status) // IN_PROGRESS
//
//	client.AddTask(ctx, "demo", lib.AddTaskOpts{Title: "Deploy v2", Suggest: true})
//
// # Seeding
//
// A board can be seeded from a YAML file, or the demo board when no file is
// given. Seeding only happens when the project has no tasks yet:
//
//	res, _ := client.Seed(ctx, nil)
//	fmt.Println(res.Seeded)
//
// # Errors
//
// The SDK returns errors that can be checked with [errors.Is] against
// [ErrNotFound], [ErrAlreadyExists] and [ErrNotValid].
//
// # Logging
//
// The SDK is silent by default. Set [Config].Logger with an implementation of
// the [github.com/slok/taskflow/pkg/lib/log.Logger] interface to get logs.
package lib
