//go:build ignore
// +build ignore

package main

import (
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var moods = []string{"calm", "tired", "restless", "content", "busy", "curious"}

var topics = []string{
	"walked along the river",
	"fixed the leaking tap",
	"read two chapters",
	"called an old friend",
	"cooked something new",
	"stayed late at work",
	"planned the weekend",
}

func main() {
	dir := flag.String("dir", "diary", "output directory")
	days := flag.Int("days", 60, "number of daily entries")
	flag.Parse()

	// Deterministic seed for reproducible output
	mr := mrand.New(mrand.NewSource(42))

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		panic(err)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < *days; i++ {
		day := start.AddDate(0, 0, i)
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", day.Format("Monday, 2 January 2006"))
		fmt.Fprintf(&b, "Mood: %s\n\n", moods[mr.Intn(len(moods))])
		// 1-3 sentences per day
		for j := 0; j < 1+mr.Intn(3); j++ {
			fmt.Fprintf(&b, "Today I %s.\n", topics[mr.Intn(len(topics))])
		}
		name := filepath.Join(*dir, day.Format("2006-01-02")+".md")
		if err := os.WriteFile(name, []byte(b.String()), 0o644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("wrote %d entries to %s\n", *days, *dir)
}
