//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the emberload CLI into bin/.
func (Build) Emberload() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/emberload", "./cmd/emberload"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the full test suite with the race detector.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet across the module.
func (Build) Vet() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
