// Package main runs the volumetric mapper as a standalone process, reading
// an attribute-map style JSON config file and serving the server's unary
// gRPC command surface. Grounded on the teacher's cmd/server entrypoints (see
// slam/cmd/server and sensor/compass/gy511/cmd/client), which all follow
// the same utils.ContextualMain + utils.ParseFlags shape.
package main

import (
	"context"
	"encoding/json"
	"net"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"google.golang.org/grpc"

	"github.com/Kabilan-n/voxblox/frame"
	"github.com/Kabilan-n/voxblox/integrator"
	"github.com/Kabilan-n/voxblox/server"
	"github.com/Kabilan-n/voxblox/voxconfig"
)

var logger = golog.NewDevelopmentLogger("voxblox-server")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigPath string `flag:"config,usage=path to a voxblox attribute-map JSON config file"`
	RobotName  string `flag:"robot-name,default=robot,usage=robot name recorded in submaps"`
	FrameID    string `flag:"frame,default=camera,usage=sensor frame id"`
	GRPCListen string `flag:"grpc-listen,default=localhost:8085,usage=address the gRPC command surface listens on"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.ConfigPath == "" {
		return errors.New("missing required -config flag")
	}

	attrs, err := loadAttributes(argsParsed.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	cfg, err := voxconfig.Decode(attrs)
	if err != nil {
		return errors.Wrap(err, "decoding config")
	}
	warnings, err := cfg.Validate(argsParsed.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "validating config")
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	tree := frame.NewStaticTree(nil)
	cam := cameraFromAttributes(attrs)

	s, err := server.New(cfg, cam, tree, argsParsed.RobotName, argsParsed.FrameID, logger)
	if err != nil {
		return errors.Wrap(err, "constructing server")
	}

	s.Start(ctx)
	defer s.Close()

	lis, err := net.Listen("tcp", argsParsed.GRPCListen)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", argsParsed.GRPCListen)
	}
	grpcServer := grpc.NewServer()
	server.RegisterVoxbloxServiceServer(grpcServer, server.NewGRPCServer(s))
	utils.PanicCapturingGo(func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Errorw("gRPC server stopped", "error", err)
		}
	})
	defer grpcServer.GracefulStop()

	<-ctx.Done()
	return nil
}

func loadAttributes(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// cameraFromAttributes reads the optional "camera" sub-object describing
// the projective integrator's sensor model; a missing object leaves a zero
// Camera, which is only ever consulted when method is "projective".
func cameraFromAttributes(attrs map[string]interface{}) integrator.Camera {
	raw, ok := attrs["camera"].(map[string]interface{})
	if !ok {
		return integrator.Camera{}
	}
	return integrator.Camera{
		Width:    intAttr(raw, "width"),
		Height:   intAttr(raw, "height"),
		HFovRad:  floatAttr(raw, "h_fov_rad"),
		VFovRad:  floatAttr(raw, "v_fov_rad"),
		MinRange: floatAttr(raw, "min_range"),
		MaxRange: floatAttr(raw, "max_range"),
	}
}

func intAttr(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func floatAttr(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
