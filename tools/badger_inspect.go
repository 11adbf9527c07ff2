package main

import (
	"chat-hub/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Prints every stored theme preference of a chat-hub badger directory.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	filter := flag.String("user", "", "Only show usernames starting with this value")
	colours := flag.Bool("colours", true, "Colour the header line")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	records, err := repositories.NewThemeRepository(db, logs.GetLoggerFromString("WARN")).List()
	if err != nil {
		log.Fatal(err)
	}

	header := fmt.Sprintf("  ====== %s ======", *dbPath)
	if *colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Username", "Theme", "Updated at"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	shown := 0
	for _, record := range records {
		if !strings.HasPrefix(record.Username, strings.ToLower(*filter)) {
			continue
		}
		shown++
		table.Append([]string{
			record.Username,
			string(record.Theme),
			record.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	fmt.Printf("%d preference(s)\n", shown)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
