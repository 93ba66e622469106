package main

import (
	"log"
	"os"
	"runtime"

	"github.com/nazarko/splitwave/engine"
	"github.com/nazarko/splitwave/eval"
	"github.com/nazarko/splitwave/uci"
)

func main() {
	var logger = log.New(os.Stderr, "", log.LstdFlags)
	logger.Println("Splitwave", "RuntimeVersion", runtime.Version(), "NumCPU", runtime.NumCPU())

	var eng = engine.NewEngine()
	eng.SetEvaluator(eval.Evaluate)
	uci.Run(eng)
}
