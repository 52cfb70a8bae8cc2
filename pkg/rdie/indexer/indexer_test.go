package indexer

import (
	"testing"

	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/drivertest"
	"github.com/stretchr/testify/assert"
)

func TestResolveContainerEmptySelector(t *testing.T) {
	frame := &drivertest.FakeFrame{}
	scoped, err := ResolveContainer(frame, "")
	assert.NoError(t, err)
	assert.False(t, scoped)
}

func TestResolveContainerNotFound(t *testing.T) {
	frame := &drivertest.FakeFrame{Elements: map[string][]*drivertest.FakeElement{}}
	scoped, err := ResolveContainer(frame, ".variant-selector")
	assert.NoError(t, err)
	assert.False(t, scoped)
}

func TestResolveContainerTooShort(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true, Box: driver.Rect{W: 400, H: 40}}
	frame := &drivertest.FakeFrame{Elements: map[string][]*drivertest.FakeElement{
		".variant-selector": {el},
	}}
	scoped, err := ResolveContainer(frame, ".variant-selector")
	assert.NoError(t, err)
	assert.False(t, scoped)
}

func TestResolveContainerNotVisible(t *testing.T) {
	el := &drivertest.FakeElement{Visible: false, Box: driver.Rect{W: 400, H: 400}}
	frame := &drivertest.FakeFrame{Elements: map[string][]*drivertest.FakeElement{
		".variant-selector": {el},
	}}
	scoped, err := ResolveContainer(frame, ".variant-selector")
	assert.NoError(t, err)
	assert.False(t, scoped)
}

func TestResolveContainerScoped(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true, Box: driver.Rect{W: 400, H: 250}}
	frame := &drivertest.FakeFrame{Elements: map[string][]*drivertest.FakeElement{
		"form[data-product-id]": {el},
	}}
	scoped, err := ResolveContainer(frame, "form[data-product-id]")
	assert.NoError(t, err)
	assert.True(t, scoped)
}

func TestResolveContainerDriverError(t *testing.T) {
	frame := &errFrame{err: driver.ErrCrossOrigin}
	scoped, err := ResolveContainer(frame, ".variant-selector")
	assert.NoError(t, err)
	assert.False(t, scoped)
}

// errFrame is a minimal driver.Frame whose QuerySelector always fails with a
// *driver.DriverError, exercising ResolveContainer's "not found is not an
// error" branch for a driver-classified failure rather than a plain Go one.
type errFrame struct {
	err error
}

func (f *errFrame) ID() string  { return "main" }
func (f *errFrame) URL() string { return "" }
func (f *errFrame) Evaluate(js string, args []interface{}, out interface{}) error {
	return f.err
}
func (f *errFrame) QuerySelector(selector string) (driver.Element, error) {
	return nil, f.err
}
func (f *errFrame) QuerySelectorAll(selector string) ([]driver.Element, error) {
	return nil, f.err
}
