package stats

import (
	"math"

	"github.com/pion/ion-stats/pkg/logger"
	"github.com/pion/ion-stats/pkg/types"
)

const (
	eventAvgBitrateUp   = "stat.avg.bitrate.upload"
	eventAvgBitrateDown = "stat.avg.bitrate.download"
	eventAvgBandwidthUp = "stat.avg.bandwidth.upload"
	eventAvgBandwidthDn = "stat.avg.bandwidth.download"
	eventAvgLossUp      = "stat.avg.packetloss.upload"
	eventAvgLossDown    = "stat.avg.packetloss.download"
	eventAvgLossTotal   = "stat.avg.packetloss.total"
	eventAvgFPSLocal    = "stat.avg.framerate.local"
	eventAvgFPSRemote   = "stat.avg.framerate.remote"
	eventAvgConnQuality = "stat.avg.connectionquality"
)

// AvgStatsReporter consumes a session's periodic connectivity samples,
// keeps windowed arithmetic means for the standard metric set, and emits
// one event per metric to the analytics sink every windowSize samples.
// It also drives one ModeAvgStats per transport mode and resets everything
// whenever the session switches modes, since values are not comparable
// across modes.
//
// A windowSize of zero or less builds an inert reporter: nothing is
// subscribed and no event ever has an observable effect. That is the
// documented way to disable average stats, not an error.
type AvgStatsReporter struct {
	windowSize int
	sampleIdx  int

	avgBitrateUp   *RunningAverage
	avgBitrateDown *RunningAverage
	avgBandwidthUp *RunningAverage
	avgBandwidthDn *RunningAverage
	avgLossUp      *RunningAverage
	avgLossDown    *RunningAverage
	avgLossTotal   *RunningAverage
	avgFPSLocal    *RunningAverage
	avgFPSRemote   *RunningAverage
	avgQuality     *RunningAverage

	relayedStats *ModeAvgStats
	directStats  *ModeAvgStats

	session Session
	caps    Capabilities
	sink    Sink
	log     logger.Logger

	listeners []ListenerID
}

func NewAvgStatsReporter(session Session, caps Capabilities, sink Sink, windowSize int) *AvgStatsReporter {
	r := &AvgStatsReporter{
		windowSize: windowSize,
		session:    session,
		caps:       caps,
		sink:       sink,
		log:        logger.GetLogger().WithName("avgstats"),
	}
	if windowSize <= 0 {
		r.log.Info("average stats reporting disabled", "windowSize", windowSize)
		return r
	}

	r.avgBitrateUp = NewRunningAverage(eventAvgBitrateUp)
	r.avgBitrateDown = NewRunningAverage(eventAvgBitrateDown)
	r.avgBandwidthUp = NewRunningAverage(eventAvgBandwidthUp)
	r.avgBandwidthDn = NewRunningAverage(eventAvgBandwidthDn)
	r.avgLossUp = NewRunningAverage(eventAvgLossUp)
	r.avgLossDown = NewRunningAverage(eventAvgLossDown)
	r.avgLossTotal = NewRunningAverage(eventAvgLossTotal)
	r.avgFPSLocal = NewRunningAverage(eventAvgFPSLocal)
	r.avgFPSRemote = NewRunningAverage(eventAvgFPSRemote)
	r.avgQuality = NewRunningAverage(eventAvgConnQuality)

	r.relayedStats = NewModeAvgStats(session, caps, sink, types.TransportMode_RELAYED, windowSize)
	r.directStats = NewModeAvgStats(session, caps, sink, types.TransportMode_DIRECT, windowSize)

	events := session.Events()
	r.listeners = append(r.listeners,
		events.OnLocalStats(r.onLocalStats),
		events.OnModeSwitch(r.onModeSwitch))

	return r
}

// Enabled reports whether this reporter was built with a usable window.
func (r *AvgStatsReporter) Enabled() bool {
	return r.windowSize > 0
}

func (r *AvgStatsReporter) onLocalStats(sample types.LocalStats) {
	// A direct session with nobody on the other end is an expected
	// transient during teardown; skip quietly.
	if r.session.IsDirect() && r.session.ParticipantCount() == 0 {
		return
	}

	if sample.Bitrate == nil || sample.Bandwidth == nil || sample.PacketLoss == nil || sample.Framerate == nil {
		r.log.Error(nil, "dropping stats sample with missing fields",
			"bitrate", sample.Bitrate != nil,
			"bandwidth", sample.Bandwidth != nil,
			"packetLoss", sample.PacketLoss != nil,
			"framerate", sample.Framerate != nil)
		metricsSampleDropped()
		return
	}

	r.avgBitrateUp.AddNext(sample.Bitrate.Upload)
	r.avgBitrateDown.AddNext(sample.Bitrate.Download)

	r.avgLossUp.AddNext(sample.PacketLoss.Upload)
	r.avgLossDown.AddNext(sample.PacketLoss.Download)
	r.avgLossTotal.AddNext(sample.PacketLoss.Total)

	if r.caps.SupportsBandwidth() {
		r.avgBandwidthUp.AddNext(sample.Bandwidth.Upload)
		r.avgBandwidthDn.AddNext(sample.Bandwidth.Download)
	}

	r.avgQuality.AddNext(sample.ConnectionQuality)

	local := r.session.LocalID()
	r.avgFPSLocal.AddNext(averageFramerate(sample.Framerate, local, true))
	r.avgFPSRemote.AddNext(averageFramerate(sample.Framerate, local, false))

	r.sampleIdx++
	if r.sampleIdx >= r.windowSize {
		r.report()
		r.reset()
	}
}

// report emits all held averages under the prefix of the mode current at
// the window boundary. A mode switch resets everything immediately, so by
// construction every sample in the window was taken under this mode.
func (r *AvgStatsReporter) report() {
	prefix := ""
	if r.session.IsDirect() {
		prefix = prefixDirect
	}

	r.avgBitrateUp.Report(r.sink, prefix)
	r.avgBitrateDown.Report(r.sink, prefix)
	r.avgLossUp.Report(r.sink, prefix)
	r.avgLossDown.Report(r.sink, prefix)
	r.avgLossTotal.Report(r.sink, prefix)

	if r.caps.SupportsBandwidth() {
		r.avgBandwidthUp.Report(r.sink, prefix)
		r.avgBandwidthDn.Report(r.sink, prefix)
	}

	r.avgFPSLocal.Report(r.sink, prefix)
	r.avgFPSRemote.Report(r.sink, prefix)
	r.avgQuality.Report(r.sink, prefix)

	metricsWindowReported()
}

func (r *AvgStatsReporter) reset() {
	r.avgBitrateUp.Reset()
	r.avgBitrateDown.Reset()
	r.avgBandwidthUp.Reset()
	r.avgBandwidthDn.Reset()
	r.avgLossUp.Reset()
	r.avgLossDown.Reset()
	r.avgLossTotal.Reset()
	r.avgFPSLocal.Reset()
	r.avgFPSRemote.Reset()
	r.avgQuality.Reset()
	r.sampleIdx = 0
}

// onModeSwitch discards all partial windows, own and per-mode. Averages
// taken under different transport paths are not comparable.
func (r *AvgStatsReporter) onModeSwitch() {
	r.reset()
	r.relayedStats.ResetAvgStats()
	r.directStats.ResetAvgStats()
}

// Dispose detaches this reporter and both per-mode aggregators from the
// session. Outstanding partial-window state is discarded.
func (r *AvgStatsReporter) Dispose() {
	if !r.Enabled() {
		return
	}
	events := r.session.Events()
	for _, id := range r.listeners {
		events.Off(id)
	}
	r.listeners = nil
	r.relayedStats.Dispose()
	r.directStats.Dispose()
}

// averageFramerate averages the reported frames per second over the local
// participant's streams (wantLocal) or everyone else's. Each participant
// is first averaged across its own streams, then participants are averaged
// together. NaN when no participant qualifies.
func averageFramerate(framerate types.FramerateMap, local types.ParticipantID, wantLocal bool) float64 {
	var sum float64
	var participants int
	for pid, streams := range framerate {
		if (pid == local) != wantLocal {
			continue
		}
		var streamSum, streamCount int
		for _, fps := range streams {
			streamSum += fps
			streamCount++
		}
		if streamCount == 0 {
			continue
		}
		sum += float64(streamSum) / float64(streamCount)
		participants++
	}
	if participants == 0 {
		return math.NaN()
	}
	return sum / float64(participants)
}
