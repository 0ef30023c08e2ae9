package project

import (
	"context"
	"errors"
	"testing"
)

func TestEnsureInbox(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first, err := store.EnsureInbox(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("EnsureInbox() error = %v", err)
	}
	if first.Name != InboxName || !first.Inbox {
		t.Errorf("inbox = %+v, want name %q and Inbox=true", first, InboxName)
	}

	second, err := store.EnsureInbox(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("EnsureInbox() second call error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("EnsureInbox() created a second inbox: %s != %s", second.ID, first.ID)
	}

	other, err := store.EnsureInbox(ctx, "tenant-b")
	if err != nil {
		t.Fatalf("EnsureInbox() for tenant-b error = %v", err)
	}
	if other.ID == first.ID {
		t.Error("tenants share an inbox")
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	p, err := store.Create(ctx, "tenant-a", "Roof Repairs")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, "tenant-a", p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Roof Repairs" || got.Inbox {
		t.Errorf("Get() = %+v, want named non-inbox project", got)
	}

	if _, err := store.Get(ctx, "tenant-b", p.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-tenant Get: err = %v, want ErrForbidden", err)
	}
	if _, err := store.Get(ctx, "tenant-a", "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("missing Get: err = %v, want ErrProjectNotFound", err)
	}
}

func TestCreate_Invalid(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.Create(ctx, "", "X"); !errors.Is(err, ErrEmptyTenantID) {
		t.Errorf("Create with empty tenant: err = %v, want ErrEmptyTenantID", err)
	}
	if _, err := store.Create(ctx, "tenant-a", ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Create with empty name: err = %v, want ErrEmptyName", err)
	}
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	p, err := store.Create(ctx, "tenant-a", "Permits")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, title := range []string{"File the variance", "Chase the surveyor"} {
		err := store.AddTask(ctx, "tenant-a", p.ID, &Task{
			ID:             "slack-100" + title[:1],
			Title:          title,
			Priority:       "high",
			SourceProvider: "slack",
		})
		if err != nil {
			t.Fatalf("AddTask(%q) error = %v", title, err)
		}
	}

	tasks, err := store.Tasks(ctx, "tenant-a", p.ID)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Tasks() = %d, want 2", len(tasks))
	}
	if tasks[0].Title != "File the variance" {
		t.Errorf("insertion order lost: first task = %q", tasks[0].Title)
	}
	if tasks[0].ProjectID != p.ID {
		t.Errorf("ProjectID = %q, want %q", tasks[0].ProjectID, p.ID)
	}

	if err := store.AddTask(ctx, "tenant-a", p.ID, &Task{Title: ""}); !errors.Is(err, ErrEmptyTaskTitle) {
		t.Errorf("AddTask with empty title: err = %v, want ErrEmptyTaskTitle", err)
	}
	if err := store.AddTask(ctx, "tenant-b", p.ID, &Task{Title: "X marks"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-tenant AddTask: err = %v, want ErrForbidden", err)
	}
}
