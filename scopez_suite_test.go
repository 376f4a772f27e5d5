package scopez

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestScopez(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scopez Suite")
}
