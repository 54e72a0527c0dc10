// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/chivay/ursadb/admin"
	"github.com/chivay/ursadb/broker"
	"github.com/chivay/ursadb/gramindex"
	"github.com/chivay/ursadb/query"
	"github.com/chivay/ursadb/store"
	"github.com/chivay/ursadb/worker"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()

	app.Name = "ursadb"
	app.HelpName = os.Args[0]
	app.Usage = "content-addressed indexed search service"
	app.HideVersion = true

	app.Commands = []cli.Command{
		runCommand,
	}

	app.Before = func(ctx *cli.Context) error {
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var runCommand = cli.Command{
	Name:  "run",
	Usage: "run the index service",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "host", Value: "localhost", Usage: "address on which to listen"},
		cli.IntFlag{Name: "port", Value: 7756, Usage: "port number on which to listen"},
		cli.StringFlag{Name: "dbpath", Usage: "path to the dataset directory (default: keep all datasets in memory)"},
		cli.IntFlag{Name: "workers", Value: 4, Usage: "number of worker goroutines in the pool"},
		cli.StringFlag{Name: "admin-addr", Value: "localhost:7757", Usage: "address for the /healthz, /stats and /metrics HTTP surface"},
	},
	Action: runServer,
}

func runServer(ctx *cli.Context) error {
	numWorkers := ctx.Int("workers")
	if numWorkers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", numWorkers)
	}

	var fsFactory gramindex.FSFactory
	if path := ctx.String("dbpath"); path != "" {
		log.Printf("storing datasets under %s", path)
		fsFactory = gramindex.DirFSFactory(path)
	} else {
		log.Printf("storing datasets in memory only")
		fsFactory = gramindex.MemFSFactory()
	}
	engine := gramindex.NewEngine(fsFactory)

	db := store.NewDatabase()
	db.SetReclaimer(engine)
	coord := broker.New(db)

	executor := &query.Executor{Search: engine, Index: engine, Results: query.NewMemResultWriter()}
	for i := 0; i < numWorkers; i++ {
		id := strconv.Itoa(i)
		w := worker.New(id, executor, coord)
		coord.AddWorker(w)
		go w.Run()
	}

	addr := net.JoinHostPort(ctx.String("host"), strconv.Itoa(ctx.Int("port")))
	srv, err := broker.Listen(coord, addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	go coord.Run()

	adminSrv := admin.New(coord)
	go func() {
		if err := adminSrv.ListenAndServe(ctx.String("admin-addr")); err != nil {
			log.Printf("admin server stopped: %v", err)
		}
	}()

	log.Printf("listening on %v with %d workers", srv.Addr(), numWorkers)
	return srv.Serve()
}
