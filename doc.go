// Package vidsink implements a fullscreen video sink on top of a
// pluggable display system.
//
// The sink takes over a display layer, negotiates a raw video format
// with the stream producer, hands out renderable frame buffers and
// puts finished frames on screen with as little copying as the
// display allows. It can also render into an externally provided
// surface instead of claiming a layer, leaving window management to
// the application.
//
// # Getting Started
//
// Create a display device, build a sink on it and walk it up to
// playing:
//
//	device, err := display.NewSoftwareDevice(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer device.Close()
//
//	options := vidsink.NewOptions()
//	options.Device = device
//	options.Accelerator = convert.NewSoftwareEngine()
//	options.Bus = func(msg media.Message) {
//	    if msg.Kind == media.MessageError {
//	        log.Printf("playback stopped: %v", msg.Err)
//	    }
//	}
//
//	sink, err := vidsink.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.SetState(media.StateNull)
//
//	if err := sink.SetState(media.StatePlaying); err != nil {
//	    log.Fatal(err)
//	}
//
// # Format Negotiation
//
// Before pushing frames, agree on a format. Caps lists what the
// display accepts, hardware friendly formats first:
//
//	caps, err := media.CapsFor(pixel.RGB32, 1280, 720, media.NewFraction(30, 1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sink.SetCaps(caps); err != nil {
//	    log.Fatal(err)
//	}
//
// # Rendering
//
// Ask the sink for buffers so frames can land directly in display
// memory, fill them and render:
//
//	buf, err := sink.AllocateBuffer(caps, caps.Format().FrameBytes(1280, 720))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fillFrame(buf.Data)
//	if err := sink.Render(buf); err != nil {
//	    log.Fatal(err)
//	}
//	buf.Release()
//
// The first frame rendered after reaching the playing state posts a
// FrameRendered element message on the bus.
//
// # Core Types
//
// The package defines several core types:
//
//   - [Sink]: the video sink itself
//   - [Options]: configuration for creating a new Sink
//
// The surrounding packages supply the rest: display abstracts the
// display system, media carries formats, buffers and events, pixel
// names the pixel formats and convert scales and converts frames in
// software.
//
// # User Input
//
// In layer mode the sink reads the display's input devices and
// forwards key and pointer events through the Navigation callback,
// with pointer coordinates remapped into video coordinates. Pressing
// Escape posts a fatal error on the bus, which is how fullscreen
// playback asks to be torn down.
//
// # Picture Controls
//
// Layers exposing brightness, contrast, hue or saturation controls
// can be adjusted through the color balance methods:
//
//	for _, ch := range sink.Channels() {
//	    fmt.Println(ch.Label, ch.Min, ch.Max)
//	}
//	if err := sink.SetChannelValue(vidsink.ChannelBrightness, 0xA000); err != nil {
//	    log.Fatal(err)
//	}
package vidsink
