package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"classattend/internal/roster"
)

type fakeRoster struct {
	mu      sync.Mutex
	classes map[string]*roster.Class
	marked  map[string]int // classID|studentID -> mark calls
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		classes: map[string]*roster.Class{
			"c1": {ID: "c1", ClassName: "CS101", TeacherID: "t1", StudentIDs: []string{"s1", "s2"}},
			"c2": {ID: "c2", ClassName: "MATH200", TeacherID: "t2", StudentIDs: []string{"s3"}},
		},
		marked: map[string]int{},
	}
}

func (f *fakeRoster) GetClass(_ context.Context, id string) (*roster.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cls, ok := f.classes[id]
	if !ok {
		return nil, nil
	}
	cp := *cls
	cp.StudentIDs = append([]string(nil), cls.StudentIDs...)
	return &cp, nil
}

func (f *fakeRoster) MarkPresent(_ context.Context, classID, studentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked[classID+"|"+studentID]++
	return nil
}

func (f *fakeRoster) marks(classID, studentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marked[classID+"|"+studentID]
}

func TestStartChecksOwnershipAndExistence(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newFakeRoster())

	if _, err := c.Start(ctx, "nope", "t1"); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("unknown class: err = %v, want ErrClassNotFound", err)
	}
	if _, err := c.Start(ctx, "c1", "t2"); !errors.Is(err, ErrNotClassTeacher) {
		t.Fatalf("wrong teacher: err = %v, want ErrNotClassTeacher", err)
	}
	sess, err := c.Start(ctx, "c1", "t1")
	if err != nil {
		t.Fatalf("owner start: %v", err)
	}
	if sess.ClassID != "c1" || sess.StartedAt.IsZero() {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestSecondStartConflictsSystemWide(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newFakeRoster())

	first, err := c.Start(ctx, "c1", "t1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// A different class with a different owner still conflicts: the slot is
	// process-wide, not per-class.
	if _, err := c.Start(ctx, "c2", "t2"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second start: err = %v, want ErrSessionActive", err)
	}

	active, startedAt := c.CheckActive("c1")
	if !active || !startedAt.Equal(first.StartedAt) {
		t.Fatalf("original session disturbed: active=%v startedAt=%v want %v", active, startedAt, first.StartedAt)
	}
}

func TestEndRequiresMatchingClass(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newFakeRoster())

	if err := c.End(ctx, "c1", "t1"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("end while idle: err = %v, want ErrNoActiveSession", err)
	}

	if _, err := c.Start(ctx, "c1", "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	// t2 owns c2, but c2's "session" is not the active one; t2 cannot clear
	// t1's session through their own class.
	if err := c.End(ctx, "c2", "t2"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("end with other class: err = %v, want ErrNoActiveSession", err)
	}
	if active, _ := c.CheckActive("c1"); !active {
		t.Fatal("session cleared by non-owner")
	}

	if err := c.End(ctx, "c1", "t2"); !errors.Is(err, ErrNotClassTeacher) {
		t.Fatalf("end by non-owner: err = %v, want ErrNotClassTeacher", err)
	}
	if err := c.End(ctx, "c1", "t1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if active, _ := c.CheckActive("c1"); active {
		t.Fatal("session still active after end")
	}
}

func TestMarkPresent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRoster()
	c := NewCoordinator(repo)

	if err := c.MarkPresent(ctx, "c1", "s1"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("mark while idle: err = %v, want ErrNoActiveSession", err)
	}

	if _, err := c.Start(ctx, "c1", "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := c.MarkPresent(ctx, "c2", "s3"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("mark against other class: err = %v, want ErrNoActiveSession", err)
	}
	if err := c.MarkPresent(ctx, "c1", "s3"); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("unenrolled student: err = %v, want ErrNotEnrolled", err)
	}
	if got := repo.marks("c1", "s3"); got != 0 {
		t.Fatalf("record written for unenrolled student: %d", got)
	}
	if err := c.MarkPresent(ctx, "c1", "nope"); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("unknown student: err = %v, want ErrNotEnrolled", err)
	}

	if err := c.MarkPresent(ctx, "c1", "s1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	// Repeat marks are idempotent successes; the upsert keeps one record.
	if err := c.MarkPresent(ctx, "c1", "s1"); err != nil {
		t.Fatalf("repeat mark: %v", err)
	}
	if got := repo.marks("c1", "s1"); got != 2 {
		t.Fatalf("upsert calls = %d, want 2", got)
	}
}

func TestCheckActiveNeverReportsAnotherClass(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newFakeRoster())

	if _, err := c.Start(ctx, "c1", "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if active, _ := c.CheckActive("c2"); active {
		t.Fatal("c1's session reported active for c2")
	}
	if active, _ := c.CheckActive("c1"); !active {
		t.Fatal("active session not reported for its own class")
	}
}

func TestConcurrentStartsOneWinner(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newFakeRoster())

	const attempts = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		classID, teacherID := "c1", "t1"
		if i%2 == 1 {
			classID, teacherID = "c2", "t2"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Start(ctx, classID, teacherID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSessionActive):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if conflicts != attempts-1 {
		t.Fatalf("conflicts = %d, want %d", conflicts, attempts-1)
	}
}
