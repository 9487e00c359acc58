package grpcnode

import "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"

func init() {
	compute.RegisterDriver(Open, "spark", "sc", "grpc", "grpcs")
}
