package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	iotGrpc "liyu1981.xyz/energy-monitor-service/pkg/grpc"
)

var maxDevices int = 1000
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var grpcClient *iotGrpc.CollectorServiceClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

func main() {
	deviceIDs := make([]string, maxDevices)
	for i := range maxDevices {
		deviceIDs[i] = "bench-" + uuid.NewString()[:8]
	}
	fmt.Printf("generated %v device IDs\n", maxDevices)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = iotGrpc.NewCollectorServiceClient(conn)

	fmt.Printf("gRPC server verified and connected\n")

	var startTime time.Time
	var usedTime time.Duration

	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			registerDevice(deviceIDs[i])
			fmt.Printf("\rregistered device %v", i)
			wg.Done()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\rregistered %v devices: used time=%v seconds, throughput=%v action/second\n",
		maxDevices, usedTime.Seconds(), float64(maxDevices)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			doAction(deviceIDs[i])
			wg.Done()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v devices: used time=%v seconds, throughput=%v action/second\n",
		maxDevices, usedTime.Seconds(), float64(maxDevices*3)/usedTime.Seconds(),
	)

	for _, deviceID := range deviceIDs {
		req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("http://%s/devices/%s", httpHostPort, deviceID), nil)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	fmt.Printf("removed %v bench devices\n", maxDevices)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func send(method, url string, payload any) {
	var body *bytes.Buffer = &bytes.Buffer{}
	if payload != nil {
		jsonData, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonData)
	}
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("\nerror: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Printf("\n%s %s: status %v\n", method, url, resp.StatusCode)
	}
}

func registerDevice(deviceID string) {
	send(http.MethodPut, fmt.Sprintf("http://%s/devices/%s", httpHostPort, deviceID),
		map[string]string{"name": "Bench " + deviceID})
}

func doAction(deviceID string) {
	actions := []func(){
		genPostReadingAction(deviceID),
		genQueryReadingsAction(deviceID),
		genRenameAction(deviceID),
	}
	actionNames := []string{
		"PostReading",
		"QueryReadings",
		"Rename",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	rndMu.Unlock()
	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for device %v", actionNames[index], deviceID)
		time.Sleep(time.Duration(100+int(rndFloat64(0, 1000, 0))) * time.Millisecond)
	}
}

func genPostReadingAction(deviceID string) func() {
	return func() {
		payload := map[string]any{
			"deviceId":    deviceID,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"power":       rndFloat64(0.0, 2000.0, 1),
			"voltage":     rndFloat64(210.0, 240.0, 1),
			"current":     rndFloat64(0.0, 9000.0, 0),
			"totalEnergy": rndFloat64(0.0, 500.0, 3),
		}

		if flipCoin() {
			send(http.MethodPost, fmt.Sprintf("http://%s/readings", httpHostPort), payload)
			return
		}
		req, err := structpb.NewStruct(payload)
		if err != nil {
			panic(err)
		}
		if _, err := grpcClient.PostReading(context.Background(), req); err != nil {
			fmt.Printf("\nerror: %v\n", err)
		}
	}
}

func genQueryReadingsAction(deviceID string) func() {
	return func() {
		if flipCoin() {
			send(http.MethodGet, fmt.Sprintf("http://%s/readings?deviceId=%s&period=1h", httpHostPort, deviceID), nil)
			return
		}
		req, _ := structpb.NewStruct(map[string]any{"deviceId": deviceID, "period": "1h"})
		if _, err := grpcClient.QueryReadings(context.Background(), req); err != nil {
			fmt.Printf("\nerror: %v\n", err)
		}
	}
}

func genRenameAction(deviceID string) func() {
	return func() {
		send(http.MethodPut, fmt.Sprintf("http://%s/devices/%s", httpHostPort, deviceID),
			map[string]string{"name": fmt.Sprintf("Bench %s #%d", deviceID, int(rndFloat64(0, 100, 0)))})
	}
}
