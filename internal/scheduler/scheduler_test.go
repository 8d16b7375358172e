package scheduler

import (
	"context"
	"testing"
)

func TestTick(t *testing.T) {
	ran := map[string]int{}
	job := func(name, expr string) Job {
		return Job{
			Name: name,
			Expr: func() string { return expr },
			Run:  func(context.Context) { ran[name]++ },
		}
	}

	s := New(
		job("always", "* * * * *"),
		job("never", "0 0 31 2 *"), // Feb 31 never comes
		job("disabled", ""),
		job("malformed", "not a cron"),
	)
	s.tick(context.Background())

	if ran["always"] != 1 {
		t.Errorf("always ran %d times, want 1", ran["always"])
	}
	for _, name := range []string{"never", "disabled", "malformed"} {
		if ran[name] != 0 {
			t.Errorf("%s ran %d times, want 0", name, ran[name])
		}
	}
}

func TestTick_ExprReadPerTick(t *testing.T) {
	expr := ""
	runs := 0
	s := New(Job{
		Name: "toggling",
		Expr: func() string { return expr },
		Run:  func(context.Context) { runs++ },
	})

	s.tick(context.Background())
	if runs != 0 {
		t.Fatal("disabled job ran")
	}

	expr = "* * * * *"
	s.tick(context.Background())
	if runs != 1 {
		t.Errorf("runs = %d, want 1 after enabling", runs)
	}
}
