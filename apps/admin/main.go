package main

import (
	"log"
	"os"

	"github.com/modelaedu/modela/core"
	"github.com/modelaedu/modela/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	store := database.NewStore(db, conf.Database.Engine)

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		usrRepo:   database.NewUserRepository(store),
		learnRepo: database.NewLearningRepository(store),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
