//go:build gui

package main

import (
	"context"

	"hark/app"
	"hark/gui"
	"hark/loop"
)

func runGUI(ctx context.Context, s session) error {
	w := gui.New("hark")
	fwd := loop.Forward(w.Do)
	defer fwd.Close()

	a, err := app.Start(ctx, app.Options{
		Config: s.cfg,
		Device: s.device,
		Client: s.client,
		Post:   fwd,
		View:   w,
	})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			w.Quit()
		case <-done:
		}
	}()

	w.Run(a)
	a.Close()
	return nil
}
