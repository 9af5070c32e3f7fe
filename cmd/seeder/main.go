//cmd/seeder/main.go
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/unclebandit/campaigner/internal/cli"
	"github.com/unclebandit/campaigner/internal/config"
	"github.com/unclebandit/campaigner/internal/importer"
	"github.com/unclebandit/campaigner/internal/logging"
	"github.com/unclebandit/campaigner/internal/service"
)

var (
	firstNames = []string{"Ana", "Bo", "Cy", "Dee", "Eli", "Fay", "Gus", "Hal", "Ida", "José"}
	parties    = []string{"DEM", "REP", "NPA", "IND"}
	precincts  = []string{"North 3", "South 1", "East 7", "West 2"}
)

// writeRecipients writes count demo recipients as a tab-delimited file with
// the columns campaigner imports.
func writeRecipients(w io.Writer, count int) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(importer.RequiredColumns); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		sex := "F"
		if i%2 == 1 {
			sex = "M"
		}
		err := cw.Write([]string{
			fmt.Sprintf("555%07d", 1000000+i),
			firstNames[i%len(firstNames)],
			fmt.Sprint(18 + (i*7)%60),
			sex,
			parties[i%len(parties)],
			precincts[i%len(precincts)],
			fmt.Sprintf("972%02d", i%40),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func main() {
	configPath := flag.String("config", "campaigner.yaml", "YAML config file")
	out := flag.String("out", "seed/recipients.txt", "recipient file to write")
	count := flag.Int("count", 25, "number of recipients")
	campaign := flag.String("campaign", "", "also create a campaign with this name from the file")
	baseURL := flag.String("base-url", "https://example.com/r", "tracking base URL for the seeded campaign")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	if err := writeRecipients(f, *count); err != nil {
		f.Close()
		log.Fatalf("failed to write %s: %v", *out, err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Seeded: %s (%d recipients)\n", *out, *count)

	if *campaign == "" {
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatal(err)
	}
	app, err := cli.Open(cfg, logger, nil)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer app.Close()

	data, err := os.ReadFile(*out)
	if err != nil {
		log.Fatal(err)
	}
	table, err := app.Importer.Import(data)
	if err != nil {
		log.Fatalf("failed to import %s: %v", *out, err)
	}
	c, err := app.Service.CreateCampaign(service.CreateCampaignInput{
		Name:            *campaign,
		Rows:            table.Rows,
		MessageTemplate: "Hi [Name], polls open at 7am tomorrow. Find your precinct here:",
		BaseURL:         *baseURL,
	})
	if err != nil {
		log.Fatalf("failed to create campaign: %v", err)
	}
	fmt.Printf("Seeded campaign %s with %d recipients\n", c.Name, len(c.Recipients))
}
