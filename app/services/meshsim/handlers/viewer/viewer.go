// Package viewer serves the page that shows node status and streams events.
package viewer

import (
	"context"
	"embed"
	"fmt"
	"net/http"

	"github.com/ardanlabs/powmesh/foundation/web"
)

//go:embed assets/index.html
var assets embed.FS

// Routes binds the viewer routes.
func Routes(app *web.App) error {
	index, err := assets.ReadFile("assets/index.html")
	if err != nil {
		return fmt.Errorf("loading index page: %w", err)
	}

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
			return err
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, err := w.Write(index)
		return err
	}
	app.Handle(http.MethodGet, "", "/", h)

	return nil
}
