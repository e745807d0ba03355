// Package testsupport holds fixtures shared by package tests: throwaway
// configs, image directories and a fake inference endpoint.
package testsupport
