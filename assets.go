package formflow

import (
	"io/fs"

	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
)

// AssetsFS exposes the default stylesheet so applications can serve it
// without importing the renderer package.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formflow.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}

// EmbeddedTemplates exposes the built-in templates so callers can reuse or
// extend them.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}
