package udpfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"strconv"
	"sync"
	"time"

	"itemcam/internal/camera"
	"itemcam/internal/config"
	"itemcam/internal/logger"

	"github.com/disintegration/imaging"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Feed receives JPEG frames pushed over UDP by network cameras, rebuilds them
// per source address and hands them to the stream bound to that camera's role.
type Feed struct {
	port   int
	roles  map[string]camera.Role
	logger *logger.Logger

	mu      sync.Mutex
	buffers map[string]*bytes.Buffer
	streams map[camera.Role]*stream
	seen    map[string]time.Time
}

func New(cfg *config.Config, logger *logger.Logger) *Feed {
	roles := make(map[string]camera.Role, len(cfg.CameraRoles))
	for ip, role := range cfg.CameraRoles {
		roles[ip] = camera.Role(role)
	}
	return &Feed{
		port:    cfg.CamerasPort,
		roles:   roles,
		logger:  logger,
		buffers: make(map[string]*bytes.Buffer),
		streams: make(map[camera.Role]*stream),
		seen:    make(map[string]time.Time),
	}
}

// Run listens until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(f.port))
	if err != nil {
		return fmt.Errorf("resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on UDP port %d: %w", f.port, err)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	f.logger.Info("📡 UDP camera feed listening on port %d", f.port)
	packet := make([]byte, 2048)

	for {
		n, remoteAddr, err := conn.ReadFromUDP(packet)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			f.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		f.HandlePacket(remoteAddr.IP.String(), packet[:n])
	}
}

// HandlePacket appends one datagram to the source's frame buffer and
// dispatches the frame once the JPEG end marker arrives.
func (f *Feed) HandlePacket(ip string, data []byte) {
	f.mu.Lock()
	f.seen[ip] = time.Now()

	buf, ok := f.buffers[ip]
	if !ok {
		buf = new(bytes.Buffer)
		f.buffers[ip] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	}
	buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		f.mu.Unlock()
		return
	}

	fullFrame := make([]byte, buf.Len())
	copy(fullFrame, buf.Bytes())
	buf.Reset()

	role, mapped := f.roles[ip]
	st := f.streams[role]
	f.mu.Unlock()

	if !mapped || st == nil {
		return
	}

	img, err := imaging.Decode(bytes.NewReader(fullFrame))
	if err != nil {
		f.logger.Warning("📡 Dropping corrupt frame from %s: %v", ip, err)
		return
	}
	st.deliver(camera.ToRGBA(img))
}

// Sources lists camera addresses heard from, for diagnostics.
func (f *Feed) Sources() map[string]time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]time.Time, len(f.seen))
	for ip, t := range f.seen {
		out[ip] = t
	}
	return out
}

// Device returns the camera serving role.
func (f *Feed) Device(role camera.Role) camera.Device {
	return &device{feed: f, role: role}
}

func (f *Feed) addressOf(role camera.Role) (string, bool) {
	for ip, r := range f.roles {
		if r == role {
			return ip, true
		}
	}
	return "", false
}

type device struct {
	feed *Feed
	role camera.Role
}

func (d *device) Info() camera.DeviceInfo {
	ip, ok := d.feed.addressOf(d.role)
	if !ok {
		ip = "unassigned"
	}
	return camera.DeviceInfo{
		ID:     "udp://" + ip,
		Label:  fmt.Sprintf("%s network camera %s", d.role, ip),
		Facing: d.role,
	}
}

func (d *device) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if _, ok := d.feed.addressOf(d.role); !ok {
		return nil, fmt.Errorf("%w: no network camera assigned to %s role", camera.ErrNoDevice, d.role)
	}

	d.feed.mu.Lock()
	defer d.feed.mu.Unlock()

	if _, busy := d.feed.streams[d.role]; busy {
		return nil, fmt.Errorf("%w: %s network camera already open", camera.ErrDeviceBusy, d.role)
	}
	st := &stream{feed: d.feed, role: d.role}
	d.feed.streams[d.role] = st
	return st, nil
}

type stream struct {
	feed *Feed
	role camera.Role

	mu       sync.Mutex
	framesCh chan *image.RGBA
	closed   bool
}

func (s *stream) Play(ctx context.Context) (<-chan *image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: %s network camera released", camera.ErrNoDevice, s.role)
	}
	if s.framesCh == nil {
		s.framesCh = make(chan *image.RGBA, 1)
	}
	return s.framesCh, nil
}

func (s *stream) deliver(img *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.framesCh == nil {
		return
	}
	select {
	case s.framesCh <- img:
	default:
	}
}

func (s *stream) Stop() {
	s.feed.mu.Lock()
	if s.feed.streams[s.role] == s {
		delete(s.feed.streams, s.role)
	}
	s.feed.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.framesCh != nil {
		close(s.framesCh)
	}
}
