package verifier

import (
	"testing"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/cascade"
	"github.com/bravebird/rdie/pkg/rdie/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyFillMatch(t *testing.T) {
	el := &drivertest.FakeElement{Value: "jane@example.com"}
	res, err := VerifyFill(el, "jane@example.com", rdie.FieldEmail)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "input-value-match", res.Method)
}

func TestVerifyFillPhoneDigitsOnly(t *testing.T) {
	el := &drivertest.FakeElement{Value: "(555) 123-4567"}
	res, err := VerifyFill(el, "5551234567", rdie.FieldPhone)
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestVerifyFillMismatchReportsObserved(t *testing.T) {
	el := &drivertest.FakeElement{Value: "wrong value"}
	res, err := VerifyFill(el, "jane@example.com", rdie.FieldEmail)
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, "wrong value", res.Observed)
}

func TestVerifySelectionViaURL(t *testing.T) {
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: map[string]interface{}{"verified": true, "method": "url", "matchedText": "Red"}}},
	}
	res, err := VerifySelection(frame, "Red")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "url", res.Method)
}

func TestVerifyActionIsImmediate(t *testing.T) {
	res := VerifyAction()
	assert.True(t, res.Verified)
	assert.Equal(t, "action-intent-immediate", res.Method)
}

func TestVerifyViaOCRStrictMatch(t *testing.T) {
	shoot := func() (string, error) { return "/tmp/shot.png", nil }
	ocr := func(path string) (string, error) { return "Color: Midnight Blue selected", nil }
	res, err := VerifyViaOCR(shoot, ocr, "Midnight Blue")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "ocr-strict", res.Method)
}

func TestVerifyViaOCRTokenBagMatch(t *testing.T) {
	shoot := func() (string, error) { return "/tmp/shot.png", nil }
	ocr := func(path string) (string, error) { return "selected swatch shows Midnight and also Blue tone", nil }
	res, err := VerifyViaOCR(shoot, ocr, "Midnight Blue")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "ocr-token-bag", res.Method)
}

func TestVerifyViaOCRNoMatch(t *testing.T) {
	shoot := func() (string, error) { return "/tmp/shot.png", nil }
	ocr := func(path string) (string, error) { return "completely unrelated page text", nil }
	res, err := VerifyViaOCR(shoot, ocr, "Midnight Blue")
	require.NoError(t, err)
	assert.False(t, res.Verified)
}

func TestVerifyViaOCRNilFuncSkips(t *testing.T) {
	shoot := func() (string, error) { t.Fatal("should not be called"); return "", nil }
	res, err := VerifyViaOCR(shoot, nil, "Midnight Blue")
	require.NoError(t, err)
	assert.False(t, res.Verified)
}

func TestReadValidationErrors(t *testing.T) {
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: []string{"Postal code is invalid"}}},
	}
	errs, err := ReadValidationErrors(frame)
	require.NoError(t, err)
	assert.Equal(t, []string{"Postal code is invalid"}, errs)
}

func TestVerifyDispatchesActionShortcut(t *testing.T) {
	d := &drivertest.FakeDriver{Main: &drivertest.FakeFrame{FrameID: "main"}}
	res, err := Verify(d, cascade.Result{}, rdie.Intent{Kind: rdie.IntentClickAction}, nil, "")
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestVerifyDispatchesFillUsingCascadeElement(t *testing.T) {
	el := &drivertest.FakeElement{Value: "jane@example.com"}
	d := &drivertest.FakeDriver{Main: &drivertest.FakeFrame{FrameID: "main"}}
	res, err := Verify(d, cascade.Result{Element: el}, rdie.Intent{Kind: rdie.IntentFillField, FieldKind: rdie.FieldEmail, Value: "jane@example.com"}, nil, "")
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestVerifyFallsBackToOCRWhenDOMFails(t *testing.T) {
	el := &drivertest.FakeElement{Value: "wrong value"}
	frame := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{
		Main:  frame,
		Shots: [][]byte{[]byte("fake-png-bytes")},
	}
	ocr := func(path string) (string, error) { return "field now shows jane@example.com", nil }
	res, err := Verify(d, cascade.Result{Element: el}, rdie.Intent{Kind: rdie.IntentFillField, FieldKind: rdie.FieldEmail, Value: "jane@example.com"}, ocr, "/tmp/shot.png")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "ocr-strict", res.Method)
}

func TestVerifyNeverFallsBackToOCRForSelection(t *testing.T) {
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: map[string]interface{}{"verified": false}}},
	}
	d := &drivertest.FakeDriver{
		Main:  frame,
		Shots: [][]byte{[]byte("fake-png-bytes")},
	}
	ocr := func(path string) (string, error) {
		t.Fatal("OCR must never be consulted for selection verification")
		return "", nil
	}
	res, err := Verify(d, cascade.Result{Frame: frame}, rdie.Intent{Kind: rdie.IntentSelectVariant, VariantValue: "Midnight Blue"}, ocr, "/tmp/shot.png")
	require.NoError(t, err)
	assert.False(t, res.Verified)
}
