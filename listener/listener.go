// Package listener adapts the teacher's statsd input plugin's network
// plumbing — UDP/TCP accept loops, a bounded worker pool, a pooled
// line buffer, and a TCP connection table — to drive a relay.Relay
// instead of a telegraf.Accumulator. Line parsing and aggregation
// themselves live in statsdline and sampler; this package is purely
// the socket layer.
package listener

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/statsrelay/relaycore/collab"
)

const (
	udpMaxPacketSize       = 64 * 1024
	defaultAllowedPending  = 10000
	defaultMaxTCPConns     = 250
	defaultNumberOfWorkers = 5
)

// Ingester is anything that accepts one raw StatsD line at a time; a
// *relay.Relay satisfies it.
type Ingester interface {
	Ingest(line []byte)
}

// Config is the network-facing tuning surface, independent of the
// sampling/elision tuning in sampler.Config and config.ElideConfig.
type Config struct {
	Protocol               string `toml:"protocol"`
	ServiceAddress         string `toml:"service_address"`
	AllowedPendingMessages int    `toml:"allowed_pending_messages"`
	NumberWorkerThreads    int    `toml:"number_worker_threads"`
	MaxTCPConnections      int    `toml:"max_tcp_connections"`
	TCPKeepAlive           bool   `toml:"tcp_keep_alive"`
	ReadBufferSize         int    `toml:"read_buffer_size"`
}

// DefaultConfig mirrors the teacher's plugin defaults.
func DefaultConfig() Config {
	return Config{
		Protocol:               "udp",
		ServiceAddress:         ":8125",
		AllowedPendingMessages: defaultAllowedPending,
		NumberWorkerThreads:    defaultNumberOfWorkers,
		MaxTCPConnections:      defaultMaxTCPConns,
	}
}

type input struct {
	*bytes.Buffer
	addr string
}

// Listener owns the UDP or TCP socket and the worker pool that drains
// it into an Ingester.
type Listener struct {
	cfg Config
	log collab.LogSink
	dst Ingester

	wg      sync.WaitGroup
	cleanup sync.Mutex

	accept chan bool
	in     chan input
	done   chan struct{}

	drops   int
	dropsMu sync.Mutex

	udpConn *net.UDPConn
	tcpLis  *net.TCPListener
	conns   map[string]*net.TCPConn

	bufPool sync.Pool
}

// New builds a Listener bound to dst. It does not start listening;
// call Start for that.
func New(cfg Config, log collab.LogSink, dst Ingester) *Listener {
	return &Listener{
		cfg:    cfg,
		log:    log,
		dst:    dst,
		conns:  make(map[string]*net.TCPConn),
		bufPool: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}
}

func (l *Listener) isUDP() bool {
	return strings.HasPrefix(l.cfg.Protocol, "udp")
}

// Start opens the configured socket and launches the accept loop plus
// the worker pool that calls Ingest for each line.
func (l *Listener) Start() error {
	l.in = make(chan input, l.cfg.AllowedPendingMessages)
	l.done = make(chan struct{})
	l.accept = make(chan bool, l.cfg.MaxTCPConnections)
	for i := 0; i < l.cfg.MaxTCPConnections; i++ {
		l.accept <- true
	}

	if l.isUDP() {
		addr, err := net.ResolveUDPAddr(l.cfg.Protocol, l.cfg.ServiceAddress)
		if err != nil {
			return err
		}
		conn, err := net.ListenUDP(l.cfg.Protocol, addr)
		if err != nil {
			return err
		}
		if l.cfg.ReadBufferSize > 0 {
			if err := conn.SetReadBuffer(l.cfg.ReadBufferSize); err != nil {
				return err
			}
		}
		l.udpConn = conn
		if l.log != nil {
			l.log.Infof("listener: udp listening on %s", conn.LocalAddr())
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.udpListen(conn)
		}()
	} else {
		addr, err := net.ResolveTCPAddr("tcp", l.cfg.ServiceAddress)
		if err != nil {
			return err
		}
		lis, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return err
		}
		l.tcpLis = lis
		if l.log != nil {
			l.log.Infof("listener: tcp listening on %s", lis.Addr())
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.tcpListen(lis)
		}()
	}

	for i := 0; i < l.cfg.NumberWorkerThreads; i++ {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.worker()
		}()
	}

	return nil
}

// Stop closes the socket(s) and every open TCP connection, then waits
// for every goroutine to exit.
func (l *Listener) Stop() {
	close(l.done)
	if l.isUDP() {
		if l.udpConn != nil {
			l.udpConn.Close()
		}
	} else {
		if l.tcpLis != nil {
			l.tcpLis.Close()
		}
		var conns []*net.TCPConn
		l.cleanup.Lock()
		for _, c := range l.conns {
			conns = append(conns, c)
		}
		l.cleanup.Unlock()
		for _, c := range conns {
			c.Close()
		}
	}
	l.wg.Wait()
}

func (l *Listener) udpListen(conn *net.UDPConn) {
	buf := make([]byte, udpMaxPacketSize)
	for {
		select {
		case <-l.done:
			return
		default:
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if strings.Contains(err.Error(), "closed network") {
				return
			}
			if l.log != nil {
				l.log.Errorf("listener: udp read: %v", err)
			}
			continue
		}
		b, _ := l.bufPool.Get().(*bytes.Buffer)
		b.Reset()
		b.Write(buf[:n])
		l.enqueue(b)
	}
}

func (l *Listener) tcpListen(lis *net.TCPListener) {
	for {
		select {
		case <-l.done:
			return
		default:
		}
		conn, err := lis.AcceptTCP()
		if err != nil {
			return
		}
		if l.cfg.TCPKeepAlive {
			_ = conn.SetKeepAlive(true)
		}
		select {
		case <-l.accept:
			l.wg.Add(1)
			id := connID(conn)
			l.remember(id, conn)
			go l.handleConn(conn, id)
		default:
			conn.Close()
			if l.log != nil {
				l.log.Infof("listener: refused tcp connection from %s, max_tcp_connections reached", conn.RemoteAddr())
			}
		}
	}
}

func (l *Listener) handleConn(conn *net.TCPConn, id string) {
	defer func() {
		l.wg.Done()
		conn.Close()
		l.accept <- true
		l.forget(id)
	}()

	scanner := bufio.NewScanner(conn)
	for {
		select {
		case <-l.done:
			return
		default:
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		b, _ := l.bufPool.Get().(*bytes.Buffer)
		b.Reset()
		b.Write(line)
		l.enqueue(b)
	}
}

func (l *Listener) enqueue(buf *bytes.Buffer) {
	select {
	case l.in <- input{Buffer: buf}:
	default:
		l.bufPool.Put(buf)
		l.dropsMu.Lock()
		l.drops++
		drops := l.drops
		l.dropsMu.Unlock()
		if l.log != nil && (drops == 1 || drops%l.cfg.AllowedPendingMessages == 0) {
			l.log.Errorf("listener: queue full, dropped %d messages so far", drops)
		}
	}
}

func (l *Listener) worker() {
	for {
		select {
		case <-l.done:
			return
		case in := <-l.in:
			lines := bytes.Split(in.Buffer.Bytes(), []byte("\n"))
			l.bufPool.Put(in.Buffer)
			for _, line := range lines {
				line = bytes.TrimSpace(line)
				if len(line) == 0 {
					continue
				}
				l.dst.Ingest(line)
			}
		}
	}
}

func (l *Listener) remember(id string, conn *net.TCPConn) {
	l.cleanup.Lock()
	defer l.cleanup.Unlock()
	l.conns[id] = conn
}

func (l *Listener) forget(id string) {
	l.cleanup.Lock()
	defer l.cleanup.Unlock()
	delete(l.conns, id)
}

func connID(conn *net.TCPConn) string {
	return conn.RemoteAddr().String() + "/" + time.Now().Format(time.RFC3339Nano)
}
