package landing

import (
	"embed"

	"HRMSLite/web/templates"

	"github.com/a-h/templ"
)

//go:embed *.html
var files embed.FS

var (
	classic    = templates.Parse(files, "classic.html")
	responsive = templates.Parse(files, "responsive.html")
)

// Copy is the fixed text of the landing page.
type Copy struct {
	Heading      string
	Description  string
	CallToAction string
	LoginPath    string
}

var DefaultCopy = Copy{
	Heading:      "Welcome to HRMS Lite",
	Description:  "Manage your small business HR needs efficiently and effectively",
	CallToAction: "Start Managing Your Team",
	LoginPath:    "/login",
}

// Classic is the original fixed-width landing page.
func Classic() templ.Component {
	return templates.Component(classic, "layout.html", DefaultCopy)
}

// Responsive is the same page with small-screen breakpoints.
func Responsive() templ.Component {
	return templates.Component(responsive, "layout.html", DefaultCopy)
}
