// Command genfill runs generative fill over PNG documents from the command line.
//
// Documents are opened into an in-memory editor, the requested selection is
// captured and sent to the generation endpoint, and the placed results are
// exported next to the requested output directory.
//
// Usage:
//
//	genfill single --prompt "a red kite" --selection 100,100,612,612 --out out photo.png
//	genfill capture --prompt "add snow" --selection 0,0,512,512 --tasks tasks.yaml photo.png
//	genfill batch --tasks tasks.yaml --out out photo.png poster.png
//	genfill partition --prompt "repaint as watercolor" --out out a.png b.png
//	genfill quota | prompts | keys | prefs | history | check | version
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
