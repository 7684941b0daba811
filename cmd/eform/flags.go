package main

import (
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-eform/internal/config"
)

// renderFlags holds the PDF pipeline flags shared by serve and render.
type renderFlags struct {
	assetsDir  string
	fontFamily string
	fontSize   int
	imageRoot  string
	timeout    time.Duration
	browserBin string
	noSandbox  bool
}

func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.assetsDir, "assets-dir", "", "directory holding fonts/ and styles/")
	fs.StringVar(&f.fontFamily, "font-family", "", "font family applied to every run")
	fs.IntVar(&f.fontSize, "font-size", 0, "font size in points")
	fs.StringVar(&f.imageRoot, "image-root", "", "directory image values must stay inside")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-document render timeout (e.g. 30s, 2m)")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Chromium executable")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers)")
}

// apply copies the flags the user set onto cfg.
func (f *renderFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	if fs.Changed("assets-dir") {
		cfg.Render.AssetsDir = f.assetsDir
	}
	if fs.Changed("font-family") {
		cfg.Render.FontFamily = f.fontFamily
	}
	if fs.Changed("font-size") {
		cfg.Render.FontSize = f.fontSize
	}
	if fs.Changed("image-root") {
		cfg.Render.ImageRoot = f.imageRoot
	}
	if fs.Changed("timeout") {
		cfg.Render.TimeoutSeconds = seconds(f.timeout)
	}
	if fs.Changed("browser-bin") {
		cfg.Browser.Bin = f.browserBin
	}
	if fs.Changed("no-sandbox") {
		cfg.Browser.NoSandbox = f.noSandbox
	}
}

// serveFlags holds the HTTP server flags.
type serveFlags struct {
	addr      string
	publicURL string
	uploadDir string
	storeFile string
	workers   int
	watch     bool
}

func addServeFlags(fs *flag.FlagSet, f *serveFlags) {
	fs.StringVar(&f.addr, "addr", "", "listen address (default "+config.DefaultAddr+")")
	fs.StringVar(&f.publicURL, "public-url", "", "base URL the document server uses to reach this service")
	fs.StringVar(&f.uploadDir, "upload-dir", "", "directory holding uploaded templates")
	fs.StringVar(&f.storeFile, "store-file", "", "YAML file persisting templates and forms (default in-memory)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renderers (0 = auto)")
	fs.BoolVar(&f.watch, "watch", false, "re-extract variables when template files change on disk")
}

func (f *serveFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	if fs.Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if fs.Changed("public-url") {
		cfg.Server.PublicURL = f.publicURL
	}
	if fs.Changed("upload-dir") {
		cfg.Storage.UploadDir = f.uploadDir
	}
	if fs.Changed("store-file") {
		cfg.Storage.StoreFile = f.storeFile
	}
	if fs.Changed("workers") {
		cfg.Render.Workers = f.workers
	}
	if fs.Changed("watch") {
		cfg.Storage.Watch = f.watch
	}
}
