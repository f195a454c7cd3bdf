package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/iot"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
)

func codeFor(err error) codes.Code {
	switch common.Kind(err) {
	case common.ErrorKindInvalid:
		return codes.InvalidArgument
	case common.ErrorKindStore:
		if errors.Is(err, store.ErrNotFound) {
			return codes.NotFound
		}
		return codes.Internal
	case common.ErrorKindAuth, common.ErrorKindTransport, common.ErrorKindVendor:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func toStatus(method string, err error) error {
	code := codeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		common.GetLoggerWith(common.LoggerNameGrpcServer).Error("Call failed",
			zap.String("method", method), zap.String("code", code.String()), zap.Error(err))
	}
	return status.Error(code, err.Error())
}

// toStruct converts v through its JSON form, so gRPC payloads carry the same
// field names as the HTTP bodies.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func (s *IOTServer) Collect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.Iot.Collector == nil {
		return nil, status.Error(codes.Unavailable, "collector not available")
	}
	// a failed cycle still answers with its summary; success carries the verdict
	return toStruct(s.Iot.Collector.Collect(ctx))
}

func (s *IOTServer) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.Iot.Collector == nil {
		return nil, status.Error(codes.Unavailable, "collector not available")
	}
	return toStruct(map[string]any{"success": true, "stats": s.Iot.Collector.Stats()})
}

func (s *IOTServer) ListLiveDevices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	devices, err := s.Iot.Device.Live(ctx)
	if err != nil {
		return nil, toStatus(MethodListLiveDevices, err)
	}
	if devices == nil {
		devices = []models.LiveDevice{}
	}
	return toStruct(map[string]any{"success": true, "devices": devices})
}

func (s *IOTServer) QueryReadings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	period, err := iot.ParsePeriod(fields["period"].GetStringValue())
	if err != nil {
		return nil, toStatus(MethodQueryReadings, err)
	}

	readings, err := s.Iot.Reading.Query(ctx, fields["deviceId"].GetStringValue(), period)
	if err != nil {
		return nil, toStatus(MethodQueryReadings, err)
	}
	if readings == nil {
		readings = []models.EnergyReading{}
	}
	return toStruct(map[string]any{"success": true, "readings": readings, "count": len(readings)})
}

var readingValidator = z.Struct(z.Shape{
	"DeviceID": z.String().Trim().Min(1).Required(),
	"Power":    z.Float64().GTE(0),
	"Voltage":  z.Float64().GTE(0),
	"Current":  z.Float64().GTE(0),
})

func (s *IOTServer) PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	reading := models.EnergyReading{
		DeviceID: fields["deviceId"].GetStringValue(),
		Power:    fields["power"].GetNumberValue(),
		Voltage:  fields["voltage"].GetNumberValue(),
		Current:  fields["current"].GetNumberValue(),
		Energy:   fields["totalEnergy"].GetNumberValue(),
	}
	if errs := readingValidator.Validate(&reading); errs != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", errs)
	}
	if ts := fields["timestamp"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "validation error: timestamp %q is not RFC3339", ts)
		}
		reading.Timestamp = t
	}

	saved, err := s.Iot.Reading.Add(ctx, &reading)
	if err != nil {
		return nil, toStatus(MethodPostReading, err)
	}
	return toStruct(map[string]any{"success": true, "readingId": saved.ID, "reading": saved})
}
