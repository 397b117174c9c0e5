package service

import (
	"context"
	"testing"
	"time"
)

func TestScheduleResolveQueuesTaskAndArmsTimer(t *testing.T) {
	tasks := &mockTaskRepo{}
	timers := newMockTimerCache()
	svc := NewTaskService(tasks, &mockResolver{}, timers, time.Second)

	at := time.Now().Add(time.Hour)
	if err := svc.ScheduleResolve(context.Background(), 7, at); err != nil {
		t.Fatalf("ScheduleResolve: %v", err)
	}
	if len(tasks.scheduled) != 1 {
		t.Fatalf("scheduled %d tasks, want 1", len(tasks.scheduled))
	}
	task := tasks.scheduled[0]
	if task.Task != TaskResolveTurn {
		t.Errorf("task %q, want %q", task.Task, TaskResolveTurn)
	}
	if task.TaskID == "" {
		t.Error("task id should be generated")
	}
	if task.Parameter == nil || *task.Parameter != "7" {
		t.Errorf("parameter %v, want 7", task.Parameter)
	}
	if task.GuildID != 7 {
		t.Errorf("guild id %d, want 7", task.GuildID)
	}
	if deadline, ok := timers.deadlines[7]; !ok || !deadline.Equal(at.UTC()) {
		t.Errorf("timer deadline %v (set %v), want %v", deadline, ok, at.UTC())
	}
}

func TestRecoverTimersReArmsPendingResolves(t *testing.T) {
	tasks := &mockTaskRepo{}
	timers := newMockTimerCache()
	svc := NewTaskService(tasks, &mockResolver{}, timers, time.Second)
	ctx := context.Background()

	if err := svc.ScheduleResolve(ctx, 3, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("ScheduleResolve: %v", err)
	}
	if err := svc.ScheduleResolve(ctx, 4, time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("ScheduleResolve: %v", err)
	}
	timers.deadlines = map[int64]time.Time{} // simulate a restart losing the keys

	if err := svc.RecoverTimers(ctx); err != nil {
		t.Fatalf("RecoverTimers: %v", err)
	}
	if len(timers.deadlines) != 2 {
		t.Fatalf("recovered %d timers, want 2", len(timers.deadlines))
	}
	for _, guildID := range []int64{3, 4} {
		if _, ok := timers.deadlines[guildID]; !ok {
			t.Errorf("guild %d timer not recovered", guildID)
		}
	}
}

func TestRunOnceDispatchesResolveTask(t *testing.T) {
	tasks := &mockTaskRepo{}
	resolver := &mockResolver{}
	svc := NewTaskService(tasks, resolver, nil, time.Second)

	if err := svc.ScheduleResolve(context.Background(), 7, time.Now()); err != nil {
		t.Fatalf("ScheduleResolve: %v", err)
	}

	worked, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !worked {
		t.Fatal("RunOnce should claim the due task")
	}
	if len(resolver.resolved) != 1 || resolver.resolved[0] != 7 {
		t.Errorf("resolved %v, want [7]", resolver.resolved)
	}

	worked, err = svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce on empty queue: %v", err)
	}
	if worked {
		t.Error("empty queue should report no work")
	}
}

func TestRunOnceDropsUnknownTask(t *testing.T) {
	tasks := &mockTaskRepo{}
	resolver := &mockResolver{}
	svc := NewTaskService(tasks, resolver, nil, time.Second)

	svc2 := NewTaskService(tasks, resolver, nil, 0)
	if svc2.pollInterval != 5*time.Second {
		t.Errorf("default poll interval %v, want 5s", svc2.pollInterval)
	}

	if err := svc.ScheduleResolve(context.Background(), 1, time.Now()); err != nil {
		t.Fatalf("ScheduleResolve: %v", err)
	}
	tasks.queue[0].Task = "send_pigeon"

	worked, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !worked {
		t.Fatal("unknown tasks are still claimed")
	}
	if len(resolver.resolved) != 0 {
		t.Errorf("resolver should not run for unknown tasks, got %v", resolver.resolved)
	}
}
