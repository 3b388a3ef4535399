//go:build mage
// +build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const image = "slimbean/airdash:latest"

// Runs go mod download and then installs the binary.
func Build() error {
	if err := sh.Run("go", "mod", "download"); err != nil {
		return err
	}
	return sh.RunV("go", "install", "./cmd/airdash")
}

// Runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Build a docker image for amd64
func BuildDockerAMD() error {
	if err := sh.RunV("docker", "build", "-t", image, "-f", "cmd/airdash/Dockerfile", "."); err != nil {
		return err
	}
	return nil
}

// Build a docker image for arm32
func ARM32Image() error {
	if err := sh.RunV("docker", "build", "--build-arg", "TARGET_PLATFORM=linux/arm/v7", "--build-arg", "COMPILE_GOARCH=arm", "--build-arg", "COMPILE_GOARM=7", "-t", image, "-f", "cmd/airdash/Dockerfile", "."); err != nil {
		return err
	}
	return nil
}

func ARM32Push() error {
	mg.Deps(ARM32Image)
	if err := sh.RunV("docker", "push", image); err != nil {
		return err
	}
	return nil
}
