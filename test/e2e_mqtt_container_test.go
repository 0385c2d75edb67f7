package test

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/gridsim/chargealloc/core/controller"
	"github.com/gridsim/chargealloc/infra/logger"
	"github.com/gridsim/chargealloc/infra/mqtt"
	"github.com/gridsim/chargealloc/test/util"
)

// publishEnvelope sends a typed payload to the given topic the way the
// simulation participants do.
func publishEnvelope(t *testing.T, cli paho.Client, topic, msgType string, epoch int64, payload any) {
	t.Helper()
	env, err := mqtt.NewEnvelope(msgType, "sim-participant", epoch, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	token := cli.Publish(topic, 1, false, raw)
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
}

func TestEndToEndAllocationOverBroker(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto not available: %v", err)
	}
	defer cleanup()

	var topics mqtt.Topics
	topics.SetDefaults()

	tr, err := mqtt.NewTransport(mqtt.Config{
		Broker:   broker,
		ClientID: "controller",
		QoS:      1,
		Topics:   topics,
	}, logger.NopLogger{})
	require.NoError(t, err)
	defer tr.Close()

	ctl, err := controller.New(controller.Config{
		TotalBudgetKW:    100,
		ExpectedVehicles: 1,
		ExpectedStations: 1,
	}, tr, nil, logger.NopLogger{})
	require.NoError(t, err)

	// Single consumer loop, epochs always drained before pending reports.
	go func() {
		for {
			select {
			case e := <-tr.Epochs():
				ctl.BeginEpoch(e)
				continue
			default:
			}
			select {
			case <-ctx.Done():
				return
			case e := <-tr.Epochs():
				ctl.BeginEpoch(e)
			case rep := <-tr.Reports():
				_ = ctl.HandleReport(rep)
			}
		}
	}()

	// The participant side: one client playing the station, the user and the
	// epoch manager.
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("sim-participant")
	cli := paho.NewClient(opts)
	token := cli.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	defer cli.Disconnect(250)

	assignments := make(chan mqtt.PowerAssignmentPayload, 4)
	token = cli.Subscribe(topics.Assignment, 1, func(_ paho.Client, msg paho.Message) {
		env, err := mqtt.DecodeEnvelope(msg.Payload())
		if err != nil {
			return
		}
		var p mqtt.PowerAssignmentPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			assignments <- p
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	ready := make(chan int64, 4)
	token = cli.Subscribe(topics.Ready, 1, func(_ paho.Client, msg paho.Message) {
		if env, err := mqtt.DecodeEnvelope(msg.Payload()); err == nil {
			ready <- env.Epoch
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	start := time.Now().UTC().Truncate(time.Minute)
	publishEnvelope(t, cli, topics.Metadata, mqtt.TypeVehicleMetadata, 0, mqtt.VehicleMetadataPayload{
		VehicleID:  "v1",
		Owner:      "owner1",
		StationID:  "A",
		SoC:        40,
		BatteryKWh: 100,
		MaxPower:   22,
	})
	publishEnvelope(t, cli, topics.Epoch, mqtt.TypeEpoch, 1, mqtt.EpochPayload{
		Number: 1,
		Start:  start,
		End:    start.Add(time.Hour),
	})
	publishEnvelope(t, cli, topics.Capacity, mqtt.TypeStationCapacity, 1, mqtt.StationCapacityPayload{
		StationID: "A",
		MaxPower:  22,
	})
	publishEnvelope(t, cli, topics.Target, mqtt.TypeVehicleTarget, 1, mqtt.VehicleTargetPayload{
		VehicleID:   "v1",
		TargetSoC:   80,
		TargetTime:  start.Add(2 * time.Hour),
		ArrivalTime: start,
	})

	select {
	case a := <-assignments:
		require.Equal(t, "A", a.StationID)
		require.Equal(t, "v1", a.VehicleID)
		require.InDelta(t, 22, a.PowerKW, 1e-9)
	case <-time.After(15 * time.Second):
		t.Fatal("no assignment received")
	}

	publishEnvelope(t, cli, topics.State, mqtt.TypeVehicleState, 1, mqtt.VehicleStatePayload{
		VehicleID: "v1",
		SoC:       62,
	})

	select {
	case epoch := <-ready:
		require.Equal(t, int64(1), epoch)
	case <-time.After(15 * time.Second):
		t.Fatal("no ready signal received")
	}
}
