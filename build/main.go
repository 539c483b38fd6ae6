package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	cmd := exec.CommandContext(a.Context(), name, args...)
	cmd.Stdout = a.Output()
	cmd.Stderr = a.Output()
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run the unit tests (zip and git are not required)",
	Deps:  goyek.Deps{vet},
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-short", "-race", "./...")
	},
})

var integration = goyek.Define(goyek.Task{
	Name:  "integration",
	Usage: "Run all tests including those that call the zip binary",
	Deps:  goyek.Deps{vet},
	Action: func(a *goyek.A) {
		if _, err := exec.LookPath("zip"); err != nil {
			a.Fatal("zip binary not found in PATH: ", err)
		}
		run(a, "go", "test", "-race", "./...")
	},
})

var all = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Run every check",
	Deps:  goyek.Deps{vet, test, integration},
})

func main() {
	goyek.SetDefault(all)
	goyek.Main(os.Args[1:])
}
