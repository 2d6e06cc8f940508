/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/testbed"
)

func main() {
	demo, err := testbed.NewDemoGame()
	if err != nil {
		panic(err)
	}

	engine, err := engine.New(demo.Game)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		engine.Stop()
	}()

	// run engine
	if err := engine.Run(); err != nil {
		panic(err)
	}
}
