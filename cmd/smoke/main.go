package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/JasonKing5/ifs/internal/client"
	"github.com/JasonKing5/ifs/internal/ids"
	"github.com/JasonKing5/ifs/internal/obs"
)

func main() {
	log := obs.Logger()
	base := os.Getenv("IFS_API_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	sessions := &client.MemorySessions{}
	api, err := client.New(base,
		client.WithSessionStore(sessions),
		client.WithNotifier(client.LogNotifier{Logger: log}),
		client.WithWaitTimeout(10*time.Second),
	)
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	email := fmt.Sprintf("smoke-%s@example.com", ids.New())
	if _, _, err := api.Register(ctx, email, "smoke-pass", "Smoke"); err != nil {
		log.Fatalf("register: %v", err)
	}
	if _, err := api.Login(ctx, email, "smoke-pass"); err != nil {
		log.Fatalf("login: %v", err)
	}

	poem, err := api.CreatePoem(ctx, client.NewPoem{
		Title:   "静夜思",
		Content: "床前明月光，疑是地上霜。举头望明月，低头思故乡。",
		Tags:    []string{"smoke", "moon"},
	})
	if err != nil {
		log.Fatalf("create poem: %v", err)
	}
	if poem.Status != "pending" || poem.Source != "system_user" {
		log.Fatalf("unexpected poem defaults: status=%s source=%s", poem.Status, poem.Source)
	}
	got, err := api.GetPoem(ctx, poem.ID)
	if err != nil || got.ID != poem.ID {
		log.Fatalf("get poem: %v", err)
	}

	// Invalidate the access token so the next calls share one refresh.
	sess, _ := sessions.Load()
	sess.AccessToken = "expired"
	_ = sessions.Save(sess)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := api.Me(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			log.Fatalf("me after refresh: %v", err)
		}
	}

	page, err := api.ListPoems(ctx, client.PoemFilter{Tags: []string{"smoke"}, SubmitterID: got.SubmitterID})
	if err != nil {
		log.Fatalf("list poems: %v", err)
	}
	if page.Total < 1 {
		log.Fatalf("expected the new poem in listing, got total=%d", page.Total)
	}

	if err := api.Logout(ctx); err != nil {
		log.Fatalf("logout: %v", err)
	}
	fmt.Printf("✅ ifs smoke test passed: user=%s poem=%s\n", email, poem.ID)
}
