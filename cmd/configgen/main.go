package main

import (
	"flag"
	"log"

	"github.com/danmuck/tracilink/internal/config"
)

func main() {
	kind := flag.String("kind", "session", "config kind: session|roi")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		switch *kind {
		case "session":
			if _, err := config.Load(path); err != nil {
				log.Fatal(err)
			}
		case "roi":
			if _, err := config.LoadROIFile(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case "session":
		return "cmd/tracictl/tracictl.toml"
	case "roi":
		return "cmd/tracictl/roi.yaml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
