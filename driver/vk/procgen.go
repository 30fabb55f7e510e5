// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build ignore

// procgen generates proc.h and proc.c from the Vulkan
// registry (vk.xml).
//
// Usage:
//
//	go run procgen.go path/to/vk.xml
package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// Level identifies how a command is loaded.
type Level int

const (
	Global Level = iota
	Instance
	Device
)

// Commands that are loaded, by level.
// Core commands are identified by their core names (the
// driver requires Vulkan 1.2), extension commands by
// their tagged names.
// vkGetInstanceProcAddr is fetched from the library and
// must not be listed here.
var procs = [...][]string{
	Global: {
		"vkCreateInstance",
		"vkEnumerateInstanceExtensionProperties",
		"vkEnumerateInstanceVersion",
	},
	Instance: {
		"vkCreateDevice",
		"vkDestroyInstance",
		"vkEnumerateDeviceExtensionProperties",
		"vkEnumeratePhysicalDevices",
		"vkGetDeviceProcAddr",
		"vkGetPhysicalDeviceFeatures2",
		"vkGetPhysicalDeviceFormatProperties",
		"vkGetPhysicalDeviceMemoryProperties",
		"vkGetPhysicalDeviceProperties",
		"vkGetPhysicalDeviceProperties2",
		"vkGetPhysicalDeviceQueueFamilyProperties",
		// VK_KHR_surface.
		"vkDestroySurfaceKHR",
		"vkGetPhysicalDeviceSurfaceCapabilitiesKHR",
		"vkGetPhysicalDeviceSurfaceFormatsKHR",
		"vkGetPhysicalDeviceSurfacePresentModesKHR",
		"vkGetPhysicalDeviceSurfaceSupportKHR",
	},
	Device: {
		"vkAllocateCommandBuffers",
		"vkAllocateDescriptorSets",
		"vkAllocateMemory",
		"vkBeginCommandBuffer",
		"vkBindBufferMemory",
		"vkBindImageMemory",
		"vkCmdBindDescriptorSets",
		"vkCmdBindPipeline",
		"vkCmdBlitImage",
		"vkCmdCopyImageToBuffer",
		"vkCmdPipelineBarrier",
		"vkCreateBuffer",
		"vkCreateCommandPool",
		"vkCreateDescriptorPool",
		"vkCreateDescriptorSetLayout",
		"vkCreateFence",
		"vkCreateImage",
		"vkCreateImageView",
		"vkCreatePipelineLayout",
		"vkCreateSemaphore",
		"vkCreateShaderModule",
		"vkDestroyBuffer",
		"vkDestroyCommandPool",
		"vkDestroyDescriptorPool",
		"vkDestroyDescriptorSetLayout",
		"vkDestroyDevice",
		"vkDestroyFence",
		"vkDestroyImage",
		"vkDestroyImageView",
		"vkDestroyPipeline",
		"vkDestroyPipelineLayout",
		"vkDestroySemaphore",
		"vkDestroyShaderModule",
		"vkDeviceWaitIdle",
		"vkEndCommandBuffer",
		"vkFreeMemory",
		"vkGetBufferDeviceAddress",
		"vkGetBufferMemoryRequirements",
		"vkGetDeviceQueue",
		"vkGetImageMemoryRequirements",
		"vkMapMemory",
		"vkQueueSubmit",
		"vkQueueWaitIdle",
		"vkResetCommandBuffer",
		"vkResetFences",
		"vkUnmapMemory",
		"vkUpdateDescriptorSets",
		"vkWaitForFences",
		// VK_KHR_acceleration_structure.
		"vkCmdBuildAccelerationStructuresKHR",
		"vkCreateAccelerationStructureKHR",
		"vkDestroyAccelerationStructureKHR",
		"vkGetAccelerationStructureBuildSizesKHR",
		"vkGetAccelerationStructureDeviceAddressKHR",
		// VK_KHR_ray_tracing_pipeline.
		"vkCmdTraceRaysKHR",
		"vkCreateRayTracingPipelinesKHR",
		"vkGetRayTracingShaderGroupHandlesKHR",
		// VK_KHR_swapchain.
		"vkAcquireNextImageKHR",
		"vkCreateSwapchainKHR",
		"vkDestroySwapchainKHR",
		"vkGetSwapchainImagesKHR",
		"vkQueuePresentKHR",
	},
}

// Registry is the subset of vk.xml that is decoded.
type Registry struct {
	Commands []Command `xml:"commands>command"`
	Types    []Type    `xml:"types>type"`
}

// Command is a <command> element.
// Aliases have no <proto> and thus no Name.
type Command struct {
	API   string  `xml:"api,attr"`
	Type  string  `xml:"proto>type"`
	Name  string  `xml:"proto>name"`
	Param []Param `xml:"param"`
	Level Level   `xml:"-"`
}

// Param is a <param> element.
type Param struct {
	API   string `xml:"api,attr"`
	Inner string `xml:",innerxml"`
}

// Type is a <type> element.
type Type struct {
	API      string `xml:"api,attr"`
	Name     string `xml:"name"`
	CharData string `xml:",chardata"`
}

// forVulkan reports whether an api attribute applies to
// Vulkan (as opposed to Vulkan SC).
func forVulkan(api string) bool {
	if api == "" {
		return true
	}
	for _, s := range strings.Split(api, ",") {
		if strings.TrimSpace(s) == "vulkan" {
			return true
		}
	}
	return false
}

var tags = regexp.MustCompile(`<[^>]*>`)

// Decl returns the C declaration of p, such as
// "const VkFenceCreateInfo* pCreateInfo".
func (p *Param) Decl() string {
	return strings.Join(strings.Fields(tags.ReplaceAllString(p.Inner, "")), " ")
}

// Arg returns the name of p.
func (p *Param) Arg() string {
	d := p.Decl()
	d = d[strings.LastIndexByte(d, ' ')+1:]
	return strings.Split(d, "[")[0]
}

// FP returns the name of the function pointer variable
// of c (vkCreateFence -> createFence).
func (c *Command) FP() string {
	return strings.ToLower(c.Name[2:3]) + c.Name[3:]
}

// Params returns the parameters of c that apply to
// Vulkan.
func (c *Command) Params() []Param {
	var ps []Param
	for _, p := range c.Param {
		if forVulkan(p.API) {
			ps = append(ps, p)
		}
	}
	return ps
}

// Proto returns the parameter list of the C wrapper.
func (c *Command) Proto() string {
	var s []string
	for _, p := range c.Params() {
		s = append(s, p.Decl())
	}
	return strings.Join(s, ", ")
}

// Args returns the argument list of the C wrapper call.
func (c *Command) Args() string {
	var s []string
	for _, p := range c.Params() {
		s = append(s, p.Arg())
	}
	return strings.Join(s, ", ")
}

// Select returns the listed commands, sorted by name,
// with their levels set.
// It fails if a listed command is missing from r.
func (r *Registry) Select() ([]Command, error) {
	level := make(map[string]Level)
	for l, names := range procs {
		for _, n := range names {
			level[n] = Level(l)
		}
	}
	var cs []Command
	for _, c := range r.Commands {
		l, ok := level[c.Name]
		if !ok || !forVulkan(c.API) {
			continue
		}
		c.Level = l
		cs = append(cs, c)
		delete(level, c.Name)
	}
	if len(level) != 0 {
		var miss []string
		for n := range level {
			miss = append(miss, n)
		}
		sort.Strings(miss)
		return nil, fmt.Errorf("commands not in registry: %s", strings.Join(miss, ", "))
	}
	// vkGetInstanceProcAddr is declared and wrapped, but
	// never loaded through itself.
	for _, c := range r.Commands {
		if c.Name == "vkGetInstanceProcAddr" {
			c.Level = -1
			cs = append(cs, c)
			break
		}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return cs, nil
}

// Version returns the complete header version of r
// (e.g., "1.3.275").
func (r *Registry) Version() (string, error) {
	var patch, compl string
	for _, t := range r.Types {
		if !forVulkan(t.API) {
			continue
		}
		def := strings.SplitAfter(t.CharData, "#define")
		switch strings.TrimSpace(t.Name) {
		case "VK_HEADER_VERSION":
			patch = strings.TrimSpace(def[len(def)-1])
		case "VK_HEADER_VERSION_COMPLETE":
			compl = strings.Trim(strings.TrimSpace(def[len(def)-1]), "()")
		}
	}
	if patch == "" || compl == "" {
		return "", errors.New("header version not found")
	}
	// The first component is the API variant.
	v := strings.Split(strings.Replace(compl, "VK_HEADER_VERSION", patch, 1), ", ")
	return strings.Join(v[1:], "."), nil
}

// data is the input of the templates.
type data struct {
	Version  string
	Commands []Command
}

// Loader returns the commands loaded at level l.
func (d *data) Loader(l Level) []Command {
	var cs []Command
	for _, c := range d.Commands {
		if c.Level == l {
			cs = append(cs, c)
		}
	}
	return cs
}

// Cleared returns the commands cleared by clearProcs.
func (d *data) Cleared() []Command {
	var cs []Command
	for _, c := range d.Commands {
		if c.Level >= Global {
			cs = append(cs, c)
		}
	}
	return cs
}

var header = template.Must(template.New("proc.h").Parse(`// Code generated by procgen.go. DO NOT EDIT.
// [vk.xml {{.Version}}]

#ifndef PROC_H
#define PROC_H

#define VK_NO_PROTOTYPES
#include <vulkan/vulkan.h>

// Function pointers.
{{range .Commands}}extern PFN_{{.Name}} {{.FP}};
{{end}}
// Functions that obtain the function pointers.
// The process of obtaining the procedures for use is as follows:
//
// 1. Fetch the vkGetInstanceProcAddr symbol and assign to getInstanceProcAddr.
// 2. Call getGlobalProcs to load global procedures.
// 3. Create a valid VkInstance and use it in a call to getInstanceProcs.
// 4. Create a valid VkDevice and use it in a call to getDeviceProcs.
//
// clearProcs can be used to set all function pointers other than
// getInstanceProcAddr to NULL.
void getGlobalProcs(void);
void getInstanceProcs(VkInstance dh);
void getDeviceProcs(VkDevice dh);
void clearProcs(void);

// Functions that wrap calls to function pointers. Used by Go code.
{{range .Commands}}// {{.Name}}
static inline {{.Type}} {{.Name}}({{.Proto}}) {
	{{if ne .Type "void"}}return {{end}}{{.FP}}({{.Args}});
}
{{end}}
#endif // PROC_H
`))

var source = template.Must(template.New("proc.c").Parse(`// Code generated by procgen.go. DO NOT EDIT.

// [vk.xml {{.Version}}]

#include <proc.h>

{{range .Commands}}PFN_{{.Name}} {{.FP}} = NULL;
{{end}}
void getGlobalProcs(void) {
	PFN_vkVoidFunction fp = NULL;
{{range .Loader 0}}	fp = getInstanceProcAddr(NULL, "{{.Name}}");
	{{.FP}} = (PFN_{{.Name}})fp;
{{end}}}

void getInstanceProcs(VkInstance dh) {
	PFN_vkVoidFunction fp = NULL;
{{range .Loader 1}}	fp = getInstanceProcAddr(dh, "{{.Name}}");
	{{.FP}} = (PFN_{{.Name}})fp;
{{end}}}

void getDeviceProcs(VkDevice dh) {
	PFN_vkVoidFunction fp = NULL;
{{range .Loader 2}}	fp = getDeviceProcAddr(dh, "{{.Name}}");
	{{.FP}} = (PFN_{{.Name}})fp;
{{end}}}

void clearProcs(void) {
{{range .Cleared}}	{{.FP}} = NULL;
{{end}}}
`))

func generate(xmlFile string) error {
	f, err := os.Open(xmlFile)
	if err != nil {
		return err
	}
	defer f.Close()
	var reg Registry
	if err = xml.NewDecoder(f).Decode(&reg); err != nil {
		return err
	}
	d := data{}
	if d.Version, err = reg.Version(); err != nil {
		return err
	}
	if d.Commands, err = reg.Select(); err != nil {
		return err
	}
	for name, t := range map[string]*template.Template{"proc.h": header, "proc.c": source} {
		out, err := os.Create(name)
		if err != nil {
			return err
		}
		if err = t.Execute(out, &d); err != nil {
			out.Close()
			return err
		}
		if err = out.Close(); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: go run procgen.go vk.xml")
		os.Exit(2)
	}
	if err := generate(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "procgen:", err)
		os.Exit(1)
	}
}
