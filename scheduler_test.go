package main

import (
	"testing"
	"time"
)

func TestSchedulerRunsInDeadlineOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	record := func(name string) func(time.Time) {
		return func(time.Time) { order = append(order, name) }
	}
	s.Schedule("c", testEpoch.Add(3*time.Second), record("c"))
	s.Schedule("a", testEpoch.Add(1*time.Second), record("a"))
	s.Schedule("b", testEpoch.Add(2*time.Second), record("b"))

	if n := s.RunDue(testEpoch); n != 0 {
		t.Errorf("nothing should be due yet, ran %d", n)
	}
	if n := s.RunDue(testEpoch.Add(2 * time.Second)); n != 2 {
		t.Errorf("expected 2 tasks, ran %d", n)
	}
	s.RunDue(testEpoch.Add(10 * time.Second))
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("unexpected order %v", order)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty scheduler, got %d", s.Len())
	}
}

func TestSchedulerSameKeyReplaces(t *testing.T) {
	s := NewScheduler()
	ran := ""
	s.Schedule("k", testEpoch.Add(time.Second), func(time.Time) { ran = "first" })
	s.Schedule("k", testEpoch.Add(5*time.Second), func(time.Time) { ran = "second" })
	if s.Len() != 1 {
		t.Fatalf("expected 1 task, got %d", s.Len())
	}
	s.RunDue(testEpoch.Add(2 * time.Second))
	if ran != "" {
		t.Errorf("replaced task should not run, got %q", ran)
	}
	s.RunDue(testEpoch.Add(5 * time.Second))
	if ran != "second" {
		t.Errorf("expected second, got %q", ran)
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.Schedule("grace:x", testEpoch, func(time.Time) { ran = true })
	s.Schedule("other", testEpoch, func(time.Time) {})
	if !s.Pending("grace:x") {
		t.Error("task should be pending")
	}
	if !s.Cancel("grace:x") {
		t.Error("cancel should report the task")
	}
	if s.Cancel("grace:x") {
		t.Error("second cancel should report nothing")
	}
	s.RunDue(testEpoch)
	if ran {
		t.Error("cancelled task ran")
	}
}

func TestSchedulerTaskCanReschedule(t *testing.T) {
	s := NewScheduler()
	count := 0
	var tick func(now time.Time)
	tick = func(now time.Time) {
		count++
		s.Schedule("tick", now.Add(time.Second), tick)
	}
	s.Schedule("tick", testEpoch, tick)
	for i := 0; i <= 5; i++ {
		s.RunDue(testEpoch.Add(time.Duration(i) * time.Second))
	}
	if count != 6 {
		t.Errorf("expected 6 runs, got %d", count)
	}
	if !s.Pending("tick") {
		t.Error("recurring task should stay scheduled")
	}
}
