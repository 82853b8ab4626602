package service

import (
	"fmt"
	"sync"

	"google.golang.org/genproto/googleapis/api/annotations"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

var (
	registerOnce sync.Once
	registered   protoreflect.FileDescriptor
	registerErr  error
)

// RegisterDescriptor builds the search/v1/search.proto descriptor and adds it
// to protoregistry.GlobalFiles, where vanguard looks services up. Both
// methods carry a google.api.http binding for REST transcoding.
func RegisterDescriptor() (protoreflect.FileDescriptor, error) {
	registerOnce.Do(func() {
		fd, err := protodesc.NewFile(searchFile(), protoregistry.GlobalFiles)
		if err != nil {
			registerErr = fmt.Errorf("build search descriptor: %w", err)
			return
		}
		if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
			registerErr = fmt.Errorf("register search descriptor: %w", err)
			return
		}
		registered = fd
	})
	return registered, registerErr
}

func searchFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("search/v1/search.proto"),
		Package: proto.String("search.v1"),
		Dependency: []string{
			"google/api/annotations.proto",
			"google/protobuf/struct.proto",
		},
		Syntax: proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("SearchService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				structMethod("Search", &annotations.HttpRule{
					Pattern: &annotations.HttpRule_Post{Post: "/v1/search"},
					Body:    "*",
				}),
				structMethod("ListDomains", &annotations.HttpRule{
					Pattern: &annotations.HttpRule_Get{Get: "/v1/domains"},
				}),
			},
		}},
	}
}

func structMethod(name string, rule *annotations.HttpRule) *descriptorpb.MethodDescriptorProto {
	opts := &descriptorpb.MethodOptions{}
	proto.SetExtension(opts, annotations.E_Http, rule)
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(".google.protobuf.Struct"),
		OutputType: proto.String(".google.protobuf.Struct"),
		Options:    opts,
	}
}
