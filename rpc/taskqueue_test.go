// Copyright 2026 momentics@gmail.com
// License: Apache 2.0

package rpc

import (
	"errors"
	"testing"
)

type recordingTask struct {
	ran   bool
	abErr error
}

func (t *recordingTask) Run(rt *ReactorThread) { t.ran = true }
func (t *recordingTask) Abort(err error)       { t.abErr = err }

func TestTaskQueue_ScheduleThenDrain(t *testing.T) {
	q := NewTaskQueue()
	task := &recordingTask{}
	q.Schedule(task)

	select {
	case <-q.Wake():
	default:
		t.Fatal("expected wake signal after Schedule")
	}

	tasks, ok := q.Drain()
	if !ok {
		t.Fatal("Drain reported closing on an open queue")
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 drained task, got %d", len(tasks))
	}
	tasks[0].Run(nil)
	if !task.ran {
		t.Fatal("task never ran")
	}
}

func TestTaskQueue_ScheduleAfterClosingAbortsImmediately(t *testing.T) {
	q := NewTaskQueue()
	if already := q.SetClosing(); already {
		t.Fatal("queue reported already closing on first SetClosing")
	}

	task := &recordingTask{}
	q.Schedule(task)

	if !errors.Is(task.abErr, ShutdownErr) {
		t.Fatalf("expected ShutdownErr, got %v", task.abErr)
	}
	if _, ok := q.Drain(); ok {
		t.Fatal("Drain should report closing once SetClosing has run")
	}
}

func TestTaskQueue_AbortRemaining(t *testing.T) {
	q := NewTaskQueue()
	tasks := []*recordingTask{{}, {}, {}}
	for _, tk := range tasks {
		q.Schedule(tk)
	}
	q.AbortRemaining(ShutdownErr)
	for i, tk := range tasks {
		if !errors.Is(tk.abErr, ShutdownErr) {
			t.Fatalf("task %d not aborted with ShutdownErr: %v", i, tk.abErr)
		}
	}
}

func TestTaskQueue_SetClosingIdempotent(t *testing.T) {
	q := NewTaskQueue()
	if q.SetClosing() {
		t.Fatal("first SetClosing reported already==true")
	}
	if !q.SetClosing() {
		t.Fatal("second SetClosing reported already==false")
	}
}
