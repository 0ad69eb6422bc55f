package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/standardbeagle/droidctl/internal/registry"
)

// keycodes maps friendly key names to Android keycodes.
var keycodes = map[string]int{
	"back":        4,
	"home":        3,
	"recent":      187,
	"menu":        82,
	"power":       26,
	"volume_up":   24,
	"volume_down": 25,
}

func keyNames() []string {
	return []string{"back", "home", "menu", "power", "recent", "volume_down", "volume_up"}
}

func registerInputOps(r *registry.Registry, deps Deps) {
	r.MustRegister(registry.Spec{
		Name:        "tap",
		Description: "Tap the screen at pixel coordinates.",
		Params: []registry.Param{
			{Name: "x", Description: "X coordinate", Type: registry.TypeInt, Required: true},
			{Name: "y", Description: "Y coordinate", Type: registry.TypeInt, Required: true},
			deviceParam(),
		},
	}, deps.handleTap)

	r.MustRegister(registry.Spec{
		Name:        "tap_element",
		Description: "Find a UI element and tap the center of its bounds.",
		Params: []registry.Param{
			{Name: "text", Description: "Exact element text", Type: registry.TypeString},
			{Name: "resource_id", Description: "Resource id", Type: registry.TypeString},
			{Name: "class_name", Description: "Widget class name", Type: registry.TypeString},
			{Name: "content_desc", Description: "Content description", Type: registry.TypeString},
			deviceParam(),
		},
	}, deps.handleTapElement)

	r.MustRegister(registry.Spec{
		Name:        "swipe",
		Description: "Swipe from one point to another.",
		Params: []registry.Param{
			{Name: "start_x", Description: "Start X", Type: registry.TypeInt, Required: true},
			{Name: "start_y", Description: "Start Y", Type: registry.TypeInt, Required: true},
			{Name: "end_x", Description: "End X", Type: registry.TypeInt, Required: true},
			{Name: "end_y", Description: "End Y", Type: registry.TypeInt, Required: true},
			{Name: "duration_ms", Description: "Swipe duration in milliseconds", Type: registry.TypeInt, Default: 300},
			deviceParam(),
		},
	}, deps.handleSwipe)

	r.MustRegister(registry.Spec{
		Name:        "input_text",
		Description: "Type text into the focused input field.",
		Params: []registry.Param{
			{Name: "text", Description: "Text to type", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleInputText)

	r.MustRegister(registry.Spec{
		Name:        "press_key",
		Description: "Press a hardware or navigation key.",
		Params: []registry.Param{
			{Name: "key", Description: "Key name", Type: registry.TypeString, Required: true, Enum: keyNames()},
			deviceParam(),
		},
	}, deps.handlePressKey)
}

func (d Deps) handleTap(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	x := args.Int("x")
	y := args.Int("y")
	if _, err := d.Session.Shell(ctx, dev, "input", "tap", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("tapped (%d, %d)", x, y)), nil
}

func (d Deps) handleTapElement(ctx context.Context, args registry.Args) (*registry.Result, error) {
	c := criteriaFromArgs(args)
	if c.empty() {
		return nil, &registry.ValidationError{
			Op:      "tap_element",
			Reason:  registry.ReasonMissingParam,
			Message: "at least one of text, resource_id, class_name, content_desc is required",
		}
	}

	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}

	matches, err := d.findElements(ctx, dev, c)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return registry.Text("no matching element found"), nil
	}

	el := matches[0]
	x, y, ok := boundsCenter(el.Bounds)
	if !ok {
		return nil, fmt.Errorf("element has unparseable bounds %q", el.Bounds)
	}
	if _, err := d.Session.Shell(ctx, dev, "input", "tap", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("tapped element at (%d, %d)", x, y)), nil
}

func (d Deps) handleSwipe(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	x1 := args.Int("start_x")
	y1 := args.Int("start_y")
	x2 := args.Int("end_x")
	y2 := args.Int("end_y")
	dur := args.Int("duration_ms")
	_, err = d.Session.Shell(ctx, dev, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(dur))
	if err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("swiped (%d, %d) -> (%d, %d) over %dms", x1, y1, x2, y2, dur)), nil
}

// escapeInputText rewrites text for the `input text` shell command, which
// has no quoting of its own. Spaces become %s and quotes are backslashed.
func escapeInputText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, " ", "%s")
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func (d Deps) handleInputText(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	text := args.String("text")
	if _, err := d.Session.Shell(ctx, dev, "input", "text", escapeInputText(text)); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("typed %d characters", len(text))), nil
}

func (d Deps) handlePressKey(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	key := args.String("key")
	code, ok := keycodes[key]
	if !ok {
		return nil, &registry.ValidationError{
			Op:      "press_key",
			Field:   "key",
			Reason:  registry.ReasonOutOfRange,
			Message: fmt.Sprintf("unknown key %q", key),
		}
	}
	if _, err := d.Session.Shell(ctx, dev, "input", "keyevent", strconv.Itoa(code)); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("pressed %s", key)), nil
}
