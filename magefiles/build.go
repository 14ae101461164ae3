//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles the GLSL sources into the SPIR-V files the renderer loads.
func (Build) Shaders() error {
	stages := map[string]string{
		"shader.vert": "vert.spv",
		"shader.frag": "frag.spv",
	}
	for src, out := range stages {
		args := withArgs(filepath.Join(shaderDir, src), "-o", filepath.Join(shaderDir, out))
		if _, err := executeCmd("glslc", args, withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Compiles the shaders and builds the prism binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/prism", "."), withStream())
	return err
}
