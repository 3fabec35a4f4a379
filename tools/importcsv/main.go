// importcsv uploads an e-amusement CSV export to a ScoreBoard backend from
// the command line, for operators who want to skip the web UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"scoredeck/config"
	"scoredeck/models"
	"scoredeck/services/importer"
	"scoredeck/services/scoreboard"
)

func main() {
	var (
		server    = flag.String("server", config.DefaultBackendURL, "backend base URL")
		username  = flag.String("user", "", "account username")
		password  = flag.String("pass", "", "account password")
		playStyle = flag.String("style", "SP", "play style (SP or DP)")
	)
	flag.Parse()
	if flag.NArg() != 1 || *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: importcsv -user <name> -pass <password> [-server url] [-style SP|DP] <file.csv>")
		os.Exit(1)
	}

	style := models.PlayStyle(*playStyle)
	if style != models.PlayStyleSP && style != models.PlayStyleDP {
		fmt.Fprintf(os.Stderr, "invalid play style %q\n", *playStyle)
		os.Exit(1)
	}

	client, err := scoreboard.NewClient(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client setup failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	user, err := client.Login(ctx, *username, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Logout(ctx)
	fmt.Printf("logged in as %s\n", user.Username)

	svc := importer.NewService(afero.NewOsFs(), client, nil)
	snap, err := svc.UploadFile(ctx, flag.Arg(0), style)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %s\n", snap.Err)
		os.Exit(1)
	}

	fmt.Printf("imported %s (%s)\n", snap.Filename, snap.PlayStyle)
	if r := snap.Result; r != nil {
		fmt.Printf("  new songs:       %d\n", r.NewSongs)
		fmt.Printf("  new charts:      %d\n", r.NewCharts)
		fmt.Printf("  scores inserted: %d\n", r.InsertedScores)
		fmt.Printf("  scores updated:  %d\n", r.UpdatedScores)
	}
}
